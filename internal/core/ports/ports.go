package ports

import (
	"context"
	"time"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
)

// ListProjectsParams selects one page of the project listing
type ListProjectsParams struct {
	Limit  int
	Cursor *string
	Query  string
}

// ProjectAPI defines the port for project and asset operations on the backend
type ProjectAPI interface {
	// ListProjects returns one page of projects
	ListProjects(ctx context.Context, params ListProjectsParams) (*domain.ProjectPage, error)

	// GetProject returns the full project record including assets and tags
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// CreateProject creates an empty project
	CreateProject(ctx context.Context, project domain.NewProject) (*domain.CreatedProject, error)

	// UpdateProject applies a partial update
	UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) error

	// DeleteProject removes a project and its files
	DeleteProject(ctx context.Context, id string) error

	// DeleteAsset removes a single asset from a project
	DeleteAsset(ctx context.Context, projectID, assetID string) error
}

// UploadFile is one part of a multipart bundle upload
type UploadFile struct {
	Name string
	Path string
}

// BundleAPI defines the port for staging uploads and importing them
type BundleAPI interface {
	// CreateBundle uploads the given files as a new bundle
	CreateBundle(ctx context.Context, files []UploadFile) (*domain.Bundle, error)

	// DeleteBundle discards a staged bundle
	DeleteBundle(ctx context.Context, id string) error

	// ImportBundle moves a bundle's files into a project
	ImportBundle(ctx context.Context, projectID string, req domain.ImportRequest) error
}

// TagAPI defines the port for tag operations
type TagAPI interface {
	ListTags(ctx context.Context, limit int, cursor *string) (*domain.TagPage, error)
	CreateTag(ctx context.Context, name string) (*domain.Tag, error)
}

// HealthChecker reports backend health
type HealthChecker interface {
	// Health returns whether the backend database is reachable
	Health(ctx context.Context) (bool, error)
}

// API is everything the client needs from the backend
type API interface {
	ProjectAPI
	BundleAPI
	TagAPI
	HealthChecker
}

// BundleJournal defines the port for the local record of uploaded bundles
type BundleJournal interface {
	// Record stores a newly created bundle as staged
	Record(ctx context.Context, bundle domain.Bundle) error

	// MarkConsumed records that a bundle was imported into a project
	MarkConsumed(ctx context.Context, bundleID, projectID string) error

	// MarkDiscarded records that a bundle was deleted
	MarkDiscarded(ctx context.Context, bundleID string) error

	// List returns journaled bundles, optionally filtered by status
	List(ctx context.Context, status domain.BundleStatus) ([]domain.BundleRecord, error)

	// Staged returns bundles still staged and older than the given age
	Staged(ctx context.Context, olderThan time.Duration) ([]domain.BundleRecord, error)
}
