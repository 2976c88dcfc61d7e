package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

// ProjectService handles project detail reads and the actions available
// from the detail view
type ProjectService struct {
	api    ports.ProjectAPI
	cache  *QueryCache
	logger *zap.Logger
}

// NewProjectService creates a new project service
func NewProjectService(api ports.ProjectAPI, cache *QueryCache, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		api:    api,
		cache:  cache,
		logger: logger,
	}
}

// Get returns a project with its assets and tags
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("Missing project id")
	}
	return Fetch(ctx, s.cache, ProjectKey(id), func(ctx context.Context) (*domain.Project, error) {
		return s.api.GetProject(ctx, id)
	})
}

// Update applies a partial update
func (s *ProjectService) Update(ctx context.Context, id string, patch domain.ProjectPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if err := s.api.UpdateProject(ctx, id, patch); err != nil {
		return err
	}
	s.invalidateProject(id)
	s.logger.Info("project updated", zap.String("project", id))
	return nil
}

// Rename changes a project's name
func (s *ProjectService) Rename(ctx context.Context, id, name string) error {
	if err := domain.ValidateProjectName(name); err != nil {
		return err
	}
	return s.Update(ctx, id, domain.ProjectPatch{Name: &name})
}

// SetDescription replaces a project's description
func (s *ProjectService) SetDescription(ctx context.Context, id, description string) error {
	return s.Update(ctx, id, domain.ProjectPatch{Description: &description})
}

// SetMainImage makes an asset the project's main image. The server decides
// whether the asset qualifies.
func (s *ProjectService) SetMainImage(ctx context.Context, id, assetID string) error {
	return s.Update(ctx, id, domain.ProjectPatch{MainImageID: domain.Some(assetID)})
}

// ClearMainImage removes the project's main image
func (s *ProjectService) ClearMainImage(ctx context.Context, id string) error {
	return s.Update(ctx, id, domain.ProjectPatch{MainImageID: domain.Null[string]()})
}

// DeleteAsset removes one asset from a project
func (s *ProjectService) DeleteAsset(ctx context.Context, projectID, assetID string) error {
	if err := s.api.DeleteAsset(ctx, projectID, assetID); err != nil {
		return err
	}
	// The list row carries main_image_id, which the server may have cleared.
	s.invalidateProject(projectID)
	s.logger.Info("asset deleted", zap.String("project", projectID), zap.String("asset", assetID))
	return nil
}

// DeleteProject removes a project
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if err := s.api.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.invalidateProject(id)
	s.logger.Info("project deleted", zap.String("project", id))
	return nil
}

func (s *ProjectService) invalidateProject(id string) {
	s.cache.Invalidate(ProjectKey(id))
	s.cache.InvalidateKind(KindProjects)
}

// MainImageCandidates returns the assets that may become the main image
func (s *ProjectService) MainImageCandidates(ctx context.Context, id string) ([]domain.Asset, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.ImageAssets(), nil
}

// ResolveAsset finds an asset by id, or by file path / base name
func ResolveAsset(p *domain.Project, ref string) (domain.Asset, error) {
	if a, ok := p.FindAsset(ref); ok {
		return a, nil
	}
	var matches []domain.Asset
	for _, a := range p.Assets {
		if a.FilePath == ref || a.Name() == ref {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return domain.Asset{}, domain.NewValidationError(fmt.Sprintf("No asset %q in project %s", ref, p.Name))
	case 1:
		return matches[0], nil
	default:
		return domain.Asset{}, domain.NewValidationError(fmt.Sprintf("%q matches %d assets, use the asset id", ref, len(matches)))
	}
}
