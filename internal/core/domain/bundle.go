package domain

import (
	"fmt"
	"strings"
	"time"
)

// Bundle is a staging area of uploaded files on the server, waiting to be
// imported into a project
type Bundle struct {
	ID          string   `json:"id"`
	Files       []string `json:"files"`
	FailedFiles []string `json:"failed_files"`
}

// ImportRequest is the payload for importing a bundle into a project
type ImportRequest struct {
	BundleID     string `json:"bundle_id"`
	NewMainImage string `json:"new_main_image,omitempty"`
}

// SelectedFile is a local file picked for upload
type SelectedFile struct {
	Name     string
	Path     string
	Size     int64
	ModTime  time.Time
	MIMEType string
}

// Key identifies a file for de-duplication: same name, size and
// modification time means the same file
func (f SelectedFile) Key() string {
	return fmt.Sprintf("%s::%d::%d", f.Name, f.Size, f.ModTime.UnixMilli())
}

// IsImage reports whether the file can be proposed as a main image
func (f SelectedFile) IsImage() bool {
	if strings.HasPrefix(f.MIMEType, "image/") {
		return true
	}
	return f.MIMEType == "" && KindFromFilename(f.Name) == AssetKindImage
}

// BundleStatus is the lifecycle of a bundle recorded locally
type BundleStatus string

const (
	BundleStaged    BundleStatus = "staged"
	BundleConsumed  BundleStatus = "consumed"
	BundleDiscarded BundleStatus = "discarded"
)

// BundleRecord is a locally journaled bundle
type BundleRecord struct {
	ID          string
	Files       []string
	FailedFiles []string
	Status      BundleStatus
	ProjectID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
