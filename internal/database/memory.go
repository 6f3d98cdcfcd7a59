package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cablesizer/internal/models"
)

// MemoryProjectRepo keeps projects in process memory. It backs STORAGE=memory
// and handler tests; contents are lost on restart.
type MemoryProjectRepo struct {
	mu    sync.RWMutex
	rows  map[uuid.UUID]models.Project
	locks map[uuid.UUID]*sync.Mutex // serialises Edit per project
}

func NewMemoryProjectRepo() *MemoryProjectRepo {
	return &MemoryProjectRepo{
		rows:  make(map[uuid.UUID]models.Project),
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *MemoryProjectRepo) lock(id uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = new(sync.Mutex)
		r.locks[id] = l
	}
	return l
}

// copies keep callers from sharing the stored segment slice
func cloneProject(p models.Project) *models.Project {
	p.Segments = append([]models.CableSegment(nil), p.Segments...)
	return &p
}

func (r *MemoryProjectRepo) Create(_ context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = *cloneProject(*p)
	return nil
}

func (r *MemoryProjectRepo) Get(_ context.Context, id uuid.UUID) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProject(p), nil
}

func (r *MemoryProjectRepo) List(_ context.Context, limit, offset int) ([]models.ProjectSummary, error) {
	r.mu.RLock()
	out := make([]models.ProjectSummary, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, models.ProjectSummary{
			ID:           p.ID,
			Name:         p.Name,
			CatalogueID:  p.CatalogueID,
			SegmentCount: len(p.Segments),
			UpdatedAt:    p.UpdatedAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if offset >= len(out) {
		return []models.ProjectSummary{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Edit applies edit to a copy of the stored project and stores the result.
// Edits of one project run one at a time.
func (r *MemoryProjectRepo) Edit(ctx context.Context, id uuid.UUID, edit func(p *models.Project) error) (*models.Project, error) {
	l := r.lock(id)
	l.Lock()
	defer l.Unlock()

	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := edit(p); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return nil, ErrNotFound
	}
	p.UpdatedAt = time.Now()
	r.rows[id] = *cloneProject(*p)
	return p, nil
}

func (r *MemoryProjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	delete(r.locks, id)
	return nil
}

// MemoryCatalogueRepo keeps uploaded catalogues in process memory.
type MemoryCatalogueRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]models.CatalogueRecord
}

func NewMemoryCatalogueRepo() *MemoryCatalogueRepo {
	return &MemoryCatalogueRepo{rows: make(map[uuid.UUID]models.CatalogueRecord)}
}

func (r *MemoryCatalogueRepo) Create(_ context.Context, c *models.CatalogueRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = *c
	return nil
}

func (r *MemoryCatalogueRepo) Get(_ context.Context, id uuid.UUID) (*models.CatalogueRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// List returns catalogue headers without their tables, newest first.
func (r *MemoryCatalogueRepo) List(_ context.Context) ([]models.CatalogueRecord, error) {
	r.mu.RLock()
	out := make([]models.CatalogueRecord, 0, len(r.rows))
	for _, c := range r.rows {
		out = append(out, models.CatalogueRecord{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
