package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cablesizer/internal/database"
	"cablesizer/internal/models"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrSegmentIndex    = errors.New("segment index out of range")
	ErrInvalidPatch    = errors.New("invalid segment patch")
)

type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, limit, offset int) ([]models.ProjectSummary, error)
	// Edit applies edit to the stored project and saves it atomically with
	// respect to other edits of the same project.
	Edit(ctx context.Context, id uuid.UUID, edit func(p *models.Project) error) (*models.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenIssuer signs project edit tokens.
type TokenIssuer interface {
	IssueEditToken(projectID string, version int, ttl time.Duration) (string, time.Time, error)
}

type CreateProjectRequest struct {
	Name        string                `json:"name"`
	Segments    []models.CableSegment `json:"segments"`
	CatalogueID string                `json:"catalogueId,omitempty"`
}

// EditToken grants write access to one project until it expires or is rotated.
type EditToken struct {
	Token     string    `json:"editToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ProjectCreated struct {
	Project *models.Project `json:"project"`
	EditToken
}

// ProjectService keeps project inputs and recomputes reports from them.
// Every write is followed by a full recompute of the stored snapshot.
type ProjectService struct {
	store      ProjectStore
	catalogues *CatalogueService
	recomputer *Recomputer
	tokens     TokenIssuer
	tokenTTL   time.Duration
	logr       *zap.Logger
}

func NewProjectService(store ProjectStore, catalogues *CatalogueService, recomputer *Recomputer, tokens TokenIssuer, tokenTTL time.Duration, logr *zap.Logger) *ProjectService {
	if logr == nil {
		logr = zap.NewNop()
	}
	return &ProjectService{
		store:      store,
		catalogues: catalogues,
		recomputer: recomputer,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		logr:       logr,
	}
}

func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest) (*ProjectCreated, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "untitled"
	}
	catID, err := s.catalogueRef(ctx, req.CatalogueID)
	if err != nil {
		return nil, err
	}
	segments := req.Segments
	if segments == nil {
		segments = []models.CableSegment{}
	}

	now := time.Now()
	p := &models.Project{
		ID:           uuid.New(),
		Name:         name,
		CatalogueID:  catID,
		Segments:     segments,
		TokenVersion: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("store project: %w", err)
	}

	tok, err := s.issue(p)
	if err != nil {
		return nil, err
	}
	s.logr.Info("project created", zap.String("project_id", p.ID.String()), zap.Int("segments", len(segments)))
	return &ProjectCreated{Project: p, EditToken: *tok}, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	uid, err := parseProjectID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, uid)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	return p, nil
}

func (s *ProjectService) List(ctx context.Context, limit, offset int) ([]models.ProjectSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

// Report recomputes the project. A non-empty leaves list keeps only the
// paths and unresolved traces starting at those buses.
func (s *ProjectService) Report(ctx context.Context, id string, leaves []string) (models.Report, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return models.Report{}, err
	}
	report, err := s.recompute(ctx, p)
	if err != nil {
		return models.Report{}, err
	}
	return filterLeaves(report, leaves), nil
}

func (s *ProjectService) ReplaceSegments(ctx context.Context, id string, segments []models.CableSegment) (models.Report, error) {
	if segments == nil {
		segments = []models.CableSegment{}
	}
	return s.mutate(ctx, id, func(p *models.Project) error {
		p.Segments = segments
		return nil
	})
}

// UpdateSegment applies a partial JSON object to one row. Fields absent from
// the patch keep their stored values.
func (s *ProjectService) UpdateSegment(ctx context.Context, id string, index int, patch json.RawMessage) (models.Report, error) {
	trimmed := bytes.TrimSpace(patch)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Report{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidPatch)
	}
	return s.mutate(ctx, id, func(p *models.Project) error {
		if index < 0 || index >= len(p.Segments) {
			return fmt.Errorf("%w: %d of %d", ErrSegmentIndex, index, len(p.Segments))
		}
		seg := p.Segments[index]
		if err := json.Unmarshal(trimmed, &seg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		p.Segments[index] = seg
		return nil
	})
}

func (s *ProjectService) DeleteSegment(ctx context.Context, id string, index int) (models.Report, error) {
	return s.mutate(ctx, id, func(p *models.Project) error {
		if index < 0 || index >= len(p.Segments) {
			return fmt.Errorf("%w: %d of %d", ErrSegmentIndex, index, len(p.Segments))
		}
		p.Segments = append(p.Segments[:index:index], p.Segments[index+1:]...)
		return nil
	})
}

func (s *ProjectService) SetCatalogue(ctx context.Context, id, catalogueID string) (models.Report, error) {
	catID, err := s.catalogueRef(ctx, catalogueID)
	if err != nil {
		return models.Report{}, err
	}
	return s.mutate(ctx, id, func(p *models.Project) error {
		p.CatalogueID = catID
		return nil
	})
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	uid, err := parseProjectID(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, uid); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
		}
		return err
	}
	s.logr.Info("project deleted", zap.String("project_id", id))
	return nil
}

// RotateToken invalidates every earlier edit token and issues a new one.
func (s *ProjectService) RotateToken(ctx context.Context, id string) (*EditToken, error) {
	p, err := s.edit(ctx, id, func(p *models.Project) error {
		p.TokenVersion++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.issue(p)
}

// CheckTokenVersion reports whether version is the project's current token version.
func (s *ProjectService) CheckTokenVersion(ctx context.Context, projectID string, version int) (bool, error) {
	p, err := s.Get(ctx, projectID)
	if errors.Is(err, ErrProjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.TokenVersion == version, nil
}

// mutate edits one project and recomputes the saved snapshot.
func (s *ProjectService) mutate(ctx context.Context, id string, edit func(p *models.Project) error) (models.Report, error) {
	p, err := s.edit(ctx, id, edit)
	if err != nil {
		return models.Report{}, err
	}
	return s.recompute(ctx, p)
}

// edit runs fn inside the store's per-project edit so concurrent writers
// never overwrite each other's changes.
func (s *ProjectService) edit(ctx context.Context, id string, fn func(p *models.Project) error) (*models.Project, error) {
	uid, err := parseProjectID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Edit(ctx, uid, fn)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	case errors.Is(err, ErrSegmentIndex), errors.Is(err, ErrInvalidPatch):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("update project %s: %w", id, err)
	}
	return p, nil
}

func parseProjectID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return uid, nil
}

func (s *ProjectService) recompute(ctx context.Context, p *models.Project) (models.Report, error) {
	catID := ""
	if p.CatalogueID != nil {
		catID = p.CatalogueID.String()
	}
	cat, err := s.catalogues.Resolve(ctx, catID)
	if err != nil {
		return models.Report{}, err
	}
	return s.recomputer.Recompute(p.Segments, cat), nil
}

// catalogueRef validates a catalogue id and returns the stored reference,
// nil for the built-in table.
func (s *ProjectService) catalogueRef(ctx context.Context, id string) (*uuid.UUID, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, DefaultCatalogueID) {
		return nil, nil
	}
	if _, err := s.catalogues.Resolve(ctx, id); err != nil {
		return nil, err
	}
	uid := uuid.MustParse(id)
	return &uid, nil
}

func (s *ProjectService) issue(p *models.Project) (*EditToken, error) {
	tok, exp, err := s.tokens.IssueEditToken(p.ID.String(), p.TokenVersion, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue edit token: %w", err)
	}
	return &EditToken{Token: tok, ExpiresAt: exp}, nil
}

func filterLeaves(report models.Report, leaves []string) models.Report {
	if len(leaves) == 0 {
		return report
	}
	keep := make(map[string]bool, len(leaves))
	for _, l := range leaves {
		keep[models.CanonicalBus(l)] = true
	}

	paths := make([]models.CablePath, 0, len(report.Paths))
	for _, p := range report.Paths {
		if keep[models.CanonicalBus(p.StartEquipment)] {
			paths = append(paths, p)
		}
	}
	unresolved := make([]models.UnresolvedTrace, 0, len(report.Unresolved))
	for _, u := range report.Unresolved {
		if keep[models.CanonicalBus(u.Leaf)] {
			unresolved = append(unresolved, u)
		}
	}
	report.Paths = paths
	report.Unresolved = unresolved
	return report
}

var (
	_ ProjectStore   = (*database.ProjectRepo)(nil)
	_ ProjectStore   = (*database.MemoryProjectRepo)(nil)
	_ CatalogueStore = (*database.CatalogueRepo)(nil)
	_ CatalogueStore = (*database.MemoryCatalogueRepo)(nil)
)
