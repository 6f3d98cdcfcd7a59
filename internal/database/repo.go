package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"cablesizer/internal/models"
)

// ProjectRepo persists projects in Postgres.
type ProjectRepo struct {
	db *bun.DB
}

func NewProjectRepo(db *bun.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, p *models.Project) error {
	_, err := r.db.NewInsert().Model(p).Exec(ctx)
	return err
}

func (r *ProjectRepo) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p := new(models.Project)
	err := r.db.NewSelect().
		Model(p).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// List returns project summaries, most recently updated first.
func (r *ProjectRepo) List(ctx context.Context, limit, offset int) ([]models.ProjectSummary, error) {
	var out []models.ProjectSummary
	err := r.db.NewSelect().
		Model((*models.Project)(nil)).
		Column("id", "name", "catalogue_id", "updated_at").
		ColumnExpr("jsonb_array_length(segments) AS segment_count").
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx, &out)
	return out, err
}

// Edit locks the row, applies edit and writes every mutable column back in
// one transaction. Concurrent edits of the same project queue on the row lock.
func (r *ProjectRepo) Edit(ctx context.Context, id uuid.UUID, edit func(p *models.Project) error) (*models.Project, error) {
	p := new(models.Project)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(p).
			Where("id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			return notFound(err)
		}
		if err := edit(p); err != nil {
			return err
		}

		p.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(p).
			Column("name", "catalogue_id", "segments", "token_version", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*models.Project)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CatalogueRepo persists uploaded catalogues.
type CatalogueRepo struct {
	db *bun.DB
}

func NewCatalogueRepo(db *bun.DB) *CatalogueRepo {
	return &CatalogueRepo{db: db}
}

func (r *CatalogueRepo) Create(ctx context.Context, c *models.CatalogueRecord) error {
	_, err := r.db.NewInsert().Model(c).Exec(ctx)
	return err
}

func (r *CatalogueRepo) Get(ctx context.Context, id uuid.UUID) (*models.CatalogueRecord, error) {
	c := new(models.CatalogueRecord)
	err := r.db.NewSelect().
		Model(c).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// List returns catalogue headers without their tables.
func (r *CatalogueRepo) List(ctx context.Context) ([]models.CatalogueRecord, error) {
	var out []models.CatalogueRecord
	err := r.db.NewSelect().
		Model(&out).
		Column("id", "name", "created_at").
		Order("created_at DESC").
		Scan(ctx)
	return out, err
}
