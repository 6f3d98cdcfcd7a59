package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"cablesizer/internal/catalogue"
)

// Project is a stored, ordered segment set. Only inputs are persisted;
// reports are recomputed on read.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:p"`

	ID           uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	Name         string         `bun:"name,notnull" json:"name"`
	CatalogueID  *uuid.UUID     `bun:"catalogue_id,type:uuid" json:"catalogue_id,omitempty"`
	Segments     []CableSegment `bun:"segments,type:jsonb" json:"segments"`
	TokenVersion int            `bun:"token_version,notnull,default:1" json:"-"`
	CreatedAt    time.Time      `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time      `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// ProjectSummary is the list view of a project.
type ProjectSummary struct {
	ID           uuid.UUID  `bun:"id" json:"id"`
	Name         string     `bun:"name" json:"name"`
	CatalogueID  *uuid.UUID `bun:"catalogue_id" json:"catalogue_id,omitempty"`
	SegmentCount int        `bun:"segment_count" json:"segment_count"`
	UpdatedAt    time.Time  `bun:"updated_at" json:"updated_at"`
}

// CatalogueRecord is an uploaded conductor catalogue. Records are immutable.
type CatalogueRecord struct {
	bun.BaseModel `bun:"table:catalogues,alias:c"`

	ID        uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	Name      string         `bun:"name,notnull" json:"name"`
	Spec      catalogue.Spec `bun:"spec,type:jsonb" json:"spec,omitempty"`
	CreatedAt time.Time      `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
