package mocks

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kamal-hamza/lima-cli/internal/adapters/api"
	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

// MockAPI is an in-memory backend that enforces the same rules as the real
// server: limit clamping, cursor pages, main image validation, bundle import.
type MockAPI struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
	order    []string
	bundles  map[string]*domain.Bundle
	tags     []domain.Tag
	nextID   int
	calls    map[string]int
	failures map[string]error
	healthy  bool

	// CreateBundleFunc, when set, replaces the default bundle handling
	CreateBundleFunc func(ctx context.Context, files []ports.UploadFile) (*domain.Bundle, error)
}

var _ ports.API = (*MockAPI)(nil)

// NewMockAPI creates an empty backend
func NewMockAPI() *MockAPI {
	return &MockAPI{
		projects: make(map[string]*domain.Project),
		bundles:  make(map[string]*domain.Bundle),
		calls:    make(map[string]int),
		failures: make(map[string]error),
		healthy:  true,
	}
}

// APIError builds a server-shaped error
func APIError(status int, code, message string) *api.APIError {
	return &api.APIError{
		Status: status,
		Body: map[string]any{
			"error": map[string]any{"code": code, "message": message},
		},
	}
}

// FailOn makes every call to method return err until cleared with a nil err
func (m *MockAPI) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// Calls returns how many times method was invoked
func (m *MockAPI) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// SetHealthy controls the health endpoint
func (m *MockAPI) SetHealthy(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = ok
}

// track must be called with the lock held
func (m *MockAPI) track(method string) error {
	m.calls[method]++
	return m.failures[method]
}

func (m *MockAPI) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s%d", prefix, m.nextID)
}

// AddProject seeds a project and returns it
func (m *MockAPI) AddProject(name string, assets ...domain.Asset) *domain.Project {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	p := &domain.Project{
		ID:         m.newID("p"),
		FolderPath: folderName(name),
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, a := range assets {
		if a.ID == "" {
			a.ID = m.newID("a")
		}
		if a.Kind == "" {
			a.Kind = domain.KindFromFilename(a.FilePath)
		}
		p.Assets = append(p.Assets, a)
	}
	m.projects[p.ID] = p
	m.order = append(m.order, p.ID)
	return cloneProject(p)
}

// Project returns a copy of a stored project
func (m *MockAPI) Project(id string) (*domain.Project, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, false
	}
	return cloneProject(p), true
}

// Bundle returns a copy of a staged bundle
func (m *MockAPI) Bundle(id string) (*domain.Bundle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bundles[id]
	if !ok {
		return nil, false
	}
	copied := *b
	return &copied, true
}

// BundleCount returns the number of staged bundles
func (m *MockAPI) BundleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bundles)
}

// ListProjects returns one page, newest last, filtered by name or description
func (m *MockAPI) ListProjects(ctx context.Context, params ports.ListProjectsParams) (*domain.ProjectPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("ListProjects"); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit == 0 {
		limit = 50
	}
	limit = max(1, min(limit, 200))

	query := strings.ToLower(strings.TrimSpace(params.Query))
	start := 0
	if params.Cursor != nil {
		start = len(m.order)
		for i, id := range m.order {
			if id == *params.Cursor {
				start = i + 1
				break
			}
		}
	}

	page := &domain.ProjectPage{Items: []domain.ProjectSummary{}}
	for _, id := range m.order[start:] {
		p := m.projects[id]
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		page.Items = append(page.Items, p.Summary())
		if len(page.Items) == limit {
			break
		}
	}

	// Like the real server, any non-empty page carries a cursor.
	if n := len(page.Items); n > 0 {
		next := page.Items[n-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

// GetProject returns a copy of the project
func (m *MockAPI) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("GetProject"); err != nil {
		return nil, err
	}

	p, ok := m.projects[id]
	if !ok {
		return nil, APIError(http.StatusNotFound, "project_not_found", "Project not found")
	}
	return cloneProject(p), nil
}

// CreateProject stores a new, empty project
func (m *MockAPI) CreateProject(ctx context.Context, project domain.NewProject) (*domain.CreatedProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("CreateProject"); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(project.Name)
	if name == "" {
		return nil, APIError(http.StatusBadRequest, "invalid_name", "Name required")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	p := &domain.Project{
		ID:         m.newID("p"),
		FolderPath: folderName(name),
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if project.Description != "" {
		desc := project.Description
		p.Description = &desc
	}
	for _, t := range project.Tags {
		p.Tags = append(p.Tags, m.ensureTag(t))
	}
	m.projects[p.ID] = p
	m.order = append(m.order, p.ID)

	return &domain.CreatedProject{ID: p.ID, FolderPath: p.FolderPath}, nil
}

// UpdateProject applies a partial update with server-side validation
func (m *MockAPI) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("UpdateProject"); err != nil {
		return err
	}

	if patch.IsEmpty() {
		return APIError(http.StatusBadRequest, "empty_patch", "No fields to update")
	}
	p, ok := m.projects[id]
	if !ok {
		return APIError(http.StatusNotFound, "project_not_found", "Project not found")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return APIError(http.StatusBadRequest, "invalid_name", "Name required")
	}
	if patch.MainImageID.Set && !patch.MainImageID.Null {
		asset, found := p.FindAsset(patch.MainImageID.Value)
		if !found || !asset.IsImage() {
			return APIError(http.StatusBadRequest, "invalid_main_image", "Main image must be an image asset of this project")
		}
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		desc := *patch.Description
		p.Description = &desc
	}
	if patch.MainImageID.Set {
		if patch.MainImageID.Null {
			p.MainImageID = nil
		} else {
			v := patch.MainImageID.Value
			p.MainImageID = &v
		}
	}
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// DeleteProject removes a project
func (m *MockAPI) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("DeleteProject"); err != nil {
		return err
	}

	if _, ok := m.projects[id]; !ok {
		return APIError(http.StatusNotFound, "project_not_found", "Project not found")
	}
	delete(m.projects, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteAsset removes an asset and clears the main image if it pointed there
func (m *MockAPI) DeleteAsset(ctx context.Context, projectID, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("DeleteAsset"); err != nil {
		return err
	}

	p, ok := m.projects[projectID]
	if !ok {
		return APIError(http.StatusNotFound, "project_not_found", "Project not found")
	}
	for i, a := range p.Assets {
		if a.ID == assetID {
			p.Assets = append(p.Assets[:i], p.Assets[i+1:]...)
			if p.MainImageID != nil && *p.MainImageID == assetID {
				p.MainImageID = nil
			}
			return nil
		}
	}
	return APIError(http.StatusNotFound, "asset_not_found", "Asset not found")
}

// CreateBundle stages files. Invalid names land in failed_files; if none
// are usable the upload is rejected.
func (m *MockAPI) CreateBundle(ctx context.Context, files []ports.UploadFile) (*domain.Bundle, error) {
	m.mu.Lock()
	if err := m.track("CreateBundle"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	override := m.CreateBundleFunc
	m.mu.Unlock()

	if override != nil {
		b, err := override(ctx, files)
		if err == nil && b != nil {
			m.mu.Lock()
			copied := *b
			m.bundles[b.ID] = &copied
			m.mu.Unlock()
		}
		return b, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := &domain.Bundle{ID: m.newID("b"), Files: []string{}, FailedFiles: []string{}}
	for _, f := range files {
		if err := domain.ValidateUploadName(f.Name); err != nil {
			b.FailedFiles = append(b.FailedFiles, f.Name)
			continue
		}
		b.Files = append(b.Files, f.Name)
	}
	if len(b.Files) == 0 {
		return nil, APIError(http.StatusBadRequest, "no_valid_files", "No valid files were uploaded")
	}

	m.bundles[b.ID] = b
	copied := *b
	return &copied, nil
}

// DeleteBundle discards a staged bundle
func (m *MockAPI) DeleteBundle(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("DeleteBundle"); err != nil {
		return err
	}
	// A cancelled request never reaches the server
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, ok := m.bundles[id]; !ok {
		return APIError(http.StatusNotFound, "bundle_not_found", "Bundle not found")
	}
	delete(m.bundles, id)
	return nil
}

// ImportBundle turns bundle files into project assets
func (m *MockAPI) ImportBundle(ctx context.Context, projectID string, req domain.ImportRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("ImportBundle"); err != nil {
		return err
	}

	p, ok := m.projects[projectID]
	if !ok {
		return APIError(http.StatusNotFound, "project_not_found", "Project not found")
	}
	b, ok := m.bundles[req.BundleID]
	if !ok {
		return APIError(http.StatusNotFound, "bundle_not_found", "Bundle not found")
	}
	if req.NewMainImage != "" {
		found := false
		for _, f := range b.Files {
			if f == req.NewMainImage && domain.KindFromFilename(f) == domain.AssetKindImage {
				found = true
				break
			}
		}
		if !found {
			return APIError(http.StatusBadRequest, "invalid_main_image", "Main image must be an image in the bundle")
		}
	}

	for _, f := range b.Files {
		asset := domain.Asset{
			ID:        m.newID("a"),
			FilePath:  f,
			Kind:      domain.KindFromFilename(f),
			SizeBytes: int64(len(f)),
		}
		p.Assets = append(p.Assets, asset)
		if f == req.NewMainImage {
			id := asset.ID
			p.MainImageID = &id
		}
	}
	delete(m.bundles, b.ID)
	return nil
}

// ListTags pages through tags ordered by name
func (m *MockAPI) ListTags(ctx context.Context, limit int, cursor *string) (*domain.TagPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("ListTags"); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	tags := append([]domain.Tag(nil), m.tags...)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

	start := 0
	if cursor != nil {
		start = len(tags)
		for i, t := range tags {
			if t.ID == *cursor {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(tags))

	page := &domain.TagPage{Items: append([]domain.Tag{}, tags[start:end]...)}
	if n := len(page.Items); n > 0 {
		next := page.Items[n-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

// CreateTag creates a tag, or returns the existing one with the same name
func (m *MockAPI) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("CreateTag"); err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		return nil, APIError(http.StatusBadRequest, "invalid_name", "Tag name required")
	}
	tag := m.ensureTag(name)
	return &tag, nil
}

// Health reports the configured health
func (m *MockAPI) Health(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("Health"); err != nil {
		return false, err
	}
	return m.healthy, nil
}

func (m *MockAPI) ensureTag(name string) domain.Tag {
	name = strings.TrimSpace(name)
	for _, t := range m.tags {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	t := domain.Tag{ID: m.newID("t"), Name: name, Color: "#888888"}
	m.tags = append(m.tags, t)
	return t
}

func matchesQuery(p *domain.Project, query string) bool {
	if strings.Contains(strings.ToLower(p.Name), query) {
		return true
	}
	return p.Description != nil && strings.Contains(strings.ToLower(*p.Description), query)
}

var nonFolderChars = regexp.MustCompile(`[^a-z0-9]+`)

func folderName(name string) string {
	return strings.Trim(nonFolderChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func cloneProject(p *domain.Project) *domain.Project {
	copied := *p
	copied.Assets = append([]domain.Asset(nil), p.Assets...)
	copied.Tags = append([]domain.Tag(nil), p.Tags...)
	return &copied
}
