package domain

import (
	"strings"
)

// ProjectSummary is one row of the project listing
type ProjectSummary struct {
	ID            string  `json:"id" yaml:"id"`
	FolderPath    string  `json:"folder_path" yaml:"folder_path"`
	Name          string  `json:"name" yaml:"name"`
	Description   *string `json:"description" yaml:"description,omitempty"`
	MainImageID   *string `json:"main_image_id" yaml:"main_image_id,omitempty"`
	CreatedAt     string  `json:"created_at" yaml:"created_at"`
	UpdatedAt     string  `json:"updated_at" yaml:"updated_at"`
	LastScannedAt *string `json:"last_scanned_at" yaml:"last_scanned_at,omitempty"`
	Tags          []Tag   `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Project is the full detail view of a project, including its assets and tags
type Project struct {
	ID            string  `json:"id"`
	FolderPath    string  `json:"folder_path"`
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	MainImageID   *string `json:"main_image_id"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	LastScannedAt *string `json:"last_scanned_at"`
	Assets        []Asset `json:"assets"`
	Tags          []Tag   `json:"tags"`
}

// ProjectPage is a single page of the cursor-paginated listing.
// A nil NextCursor means the server has nothing further.
type ProjectPage struct {
	Items      []ProjectSummary `json:"items"`
	NextCursor *string          `json:"next_cursor"`
}

// CreatedProject is the server's answer to a create call
type CreatedProject struct {
	ID         string `json:"id"`
	FolderPath string `json:"folder_path"`
}

// NewProject is the payload for creating a project. Description is sent
// as "" and Tags as [] when absent.
type NewProject struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Summary reduces a detail record to its list row
func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{
		ID:            p.ID,
		FolderPath:    p.FolderPath,
		Name:          p.Name,
		Description:   p.Description,
		MainImageID:   p.MainImageID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		LastScannedAt: p.LastScannedAt,
		Tags:          p.Tags,
	}
}

// ImageAssets returns the assets eligible to be the main image
func (p *Project) ImageAssets() []Asset {
	var images []Asset
	for _, a := range p.Assets {
		if a.Kind == AssetKindImage {
			images = append(images, a)
		}
	}
	return images
}

// FindAsset looks up an asset by id
func (p *Project) FindAsset(id string) (Asset, bool) {
	for _, a := range p.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// MainImage resolves the main image reference, if it still points at an asset
func (p *Project) MainImage() (Asset, bool) {
	if p.MainImageID == nil {
		return Asset{}, false
	}
	return p.FindAsset(*p.MainImageID)
}

// TotalSize sums the byte size of every asset
func (p *Project) TotalSize() int64 {
	var total int64
	for _, a := range p.Assets {
		total += a.SizeBytes
	}
	return total
}

// DescriptionOr returns the description or a fallback when it is absent or blank
func DescriptionOr(desc *string, fallback string) string {
	if desc == nil || strings.TrimSpace(*desc) == "" {
		return fallback
	}
	return *desc
}

// ValidateProjectName checks a name locally before any network call
func ValidateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("Name is required")
	}
	return nil
}
