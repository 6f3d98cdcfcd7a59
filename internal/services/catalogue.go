package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/database"
	"cablesizer/internal/metrics"
	"cablesizer/internal/models"
)

var ErrCatalogueNotFound = errors.New("catalogue not found")

// DefaultCatalogueID names the built-in table.
const DefaultCatalogueID = "default"

type CatalogueStore interface {
	Create(ctx context.Context, c *models.CatalogueRecord) error
	Get(ctx context.Context, id uuid.UUID) (*models.CatalogueRecord, error)
	List(ctx context.Context) ([]models.CatalogueRecord, error)
}

// CatalogueService stores uploaded catalogues and resolves ids to validated
// tables. Stored catalogues never change, so resolved tables are cached.
type CatalogueService struct {
	store   CatalogueStore
	cache   *gocache.Cache
	metrics *metrics.SizingMetrics
	logr    *zap.Logger
}

func NewCatalogueService(store CatalogueStore, ttl time.Duration, m *metrics.SizingMetrics, logr *zap.Logger) *CatalogueService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &CatalogueService{
		store:   store,
		cache:   gocache.New(ttl, ttl*2),
		metrics: m,
		logr:    logr,
	}
}

// Resolve returns the catalogue for id. Empty and "default" select the
// built-in table.
func (s *CatalogueService) Resolve(ctx context.Context, id string) (*catalogue.Catalogue, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, DefaultCatalogueID) {
		return catalogue.Default(), nil
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCatalogueNotFound, id)
	}

	if cached, ok := s.cache.Get(uid.String()); ok {
		s.record(true)
		return cached.(*catalogue.Catalogue), nil
	}
	s.record(false)

	rec, err := s.store.Get(ctx, uid)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogueNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load catalogue %s: %w", id, err)
	}

	cat, err := catalogue.FromSpec(rec.Name, rec.Spec)
	if err != nil {
		return nil, fmt.Errorf("stored catalogue %s: %w", id, err)
	}
	s.cache.Set(uid.String(), cat, gocache.DefaultExpiration)
	return cat, nil
}

// Upload validates and stores a catalogue document.
func (s *CatalogueService) Upload(ctx context.Context, name string, spec catalogue.Spec) (*models.CatalogueRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "uploaded"
	}
	cat, err := catalogue.FromSpec(name, spec)
	if err != nil {
		return nil, err
	}

	rec := &models.CatalogueRecord{
		ID:        uuid.New(),
		Name:      name,
		Spec:      cat.Spec(),
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store catalogue: %w", err)
	}
	s.cache.Set(rec.ID.String(), cat, gocache.DefaultExpiration)

	s.logr.Info("catalogue uploaded",
		zap.String("catalogue_id", rec.ID.String()),
		zap.String("name", name),
		zap.Int("core_configs", len(cat.Cores())))
	return rec, nil
}

func (s *CatalogueService) List(ctx context.Context) ([]models.CatalogueRecord, error) {
	return s.store.List(ctx)
}

// Get returns the stored record; "default" returns the built-in table.
func (s *CatalogueService) Get(ctx context.Context, id string) (*models.CatalogueRecord, error) {
	if strings.EqualFold(strings.TrimSpace(id), DefaultCatalogueID) {
		def := catalogue.Default()
		return &models.CatalogueRecord{Name: def.Name(), Spec: def.Spec()}, nil
	}
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCatalogueNotFound, id)
	}
	rec, err := s.store.Get(ctx, uid)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogueNotFound, id)
	}
	return rec, err
}

func (s *CatalogueService) record(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCatalogueLookup(hit)
	}
}
