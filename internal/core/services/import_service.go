package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

// Workflow steps reported by StepError
const (
	StepCreate = "create"
	StepImport = "import"
)

// StepError tells which step of a multi-step workflow failed
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// importAPI is what the import workflow needs from the backend
type importAPI interface {
	CreateProject(ctx context.Context, project domain.NewProject) (*domain.CreatedProject, error)
	ImportBundle(ctx context.Context, projectID string, req domain.ImportRequest) error
}

// ImportService moves uploaded bundles into projects
type ImportService struct {
	api     importAPI
	cache   *QueryCache
	journal ports.BundleJournal
	logger  *zap.Logger
}

// NewImportService creates a new import service. journal may be nil.
func NewImportService(api importAPI, cache *QueryCache, journal ports.BundleJournal, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		api:     api,
		cache:   cache,
		journal: journal,
		logger:  logger,
	}
}

// ImportRequest represents a request to import a bundle into a project
type ImportRequest struct {
	ProjectID string
	BundleID  string
	MainImage string // File name inside the bundle (optional)
}

// Execute imports a bundle into an existing project
func (s *ImportService) Execute(ctx context.Context, req ImportRequest) error {
	if strings.TrimSpace(req.BundleID) == "" {
		return domain.NewValidationError("Missing bundle id")
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return domain.NewValidationError("Missing project id")
	}

	payload := domain.ImportRequest{
		BundleID:     req.BundleID,
		NewMainImage: strings.TrimSpace(req.MainImage),
	}
	if err := s.api.ImportBundle(ctx, req.ProjectID, payload); err != nil {
		return err
	}

	s.cache.Invalidate(ProjectKey(req.ProjectID))
	s.cache.InvalidateKind(KindProjects)

	if s.journal != nil {
		if err := s.journal.MarkConsumed(ctx, req.BundleID, req.ProjectID); err != nil {
			s.logger.Warn("journal update failed", zap.String("bundle", req.BundleID), zap.Error(err))
		}
	}

	s.logger.Info("bundle imported",
		zap.String("project", req.ProjectID),
		zap.String("bundle", req.BundleID),
		zap.String("main_image", payload.NewMainImage),
	)
	return nil
}

// CreateProjectRequest represents a request to create a project, optionally
// filling it from an uploaded bundle
type CreateProjectRequest struct {
	Name        string
	Description string
	TagText     string // Comma, pipe or newline separated
	BundleID    string // Optional
	MainImage   string // Optional, only used with BundleID
}

// CreateProjectResponse represents the outcome of a create
type CreateProjectResponse struct {
	ProjectID  string
	FolderPath string
	Imported   bool
}

// Create creates a project and, when a bundle is given, imports it. If the
// import fails the project still exists: the response carries its id and
// the error is a StepError for the import step.
func (s *ImportService) Create(ctx context.Context, req CreateProjectRequest) (*CreateProjectResponse, error) {
	if err := domain.ValidateProjectName(req.Name); err != nil {
		return nil, err
	}

	desc := req.Description
	if strings.TrimSpace(desc) == "" {
		desc = ""
	}
	tags := domain.ParseTags(req.TagText)
	if tags == nil {
		tags = []string{}
	}

	created, err := s.api.CreateProject(ctx, domain.NewProject{
		Name:        strings.TrimSpace(req.Name),
		Description: desc,
		Tags:        tags,
	})
	if err != nil {
		return nil, &StepError{Step: StepCreate, Err: err}
	}
	s.cache.InvalidateKind(KindProjects)

	res := &CreateProjectResponse{ProjectID: created.ID, FolderPath: created.FolderPath}
	s.logger.Info("project created", zap.String("project", created.ID), zap.Strings("tags", tags))

	if req.BundleID == "" {
		return res, nil
	}

	err = s.Execute(ctx, ImportRequest{
		ProjectID: created.ID,
		BundleID:  req.BundleID,
		MainImage: req.MainImage,
	})
	if err != nil {
		return res, &StepError{Step: StepImport, Err: err}
	}
	res.Imported = true
	return res, nil
}
