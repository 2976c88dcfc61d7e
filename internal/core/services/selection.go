package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
)

// Selection is an ordered set of local files, de-duplicated by name, size
// and modification time
type Selection struct {
	files []domain.SelectedFile
	index map[string]int
}

// NewSelection creates an empty selection
func NewSelection() *Selection {
	return &Selection{index: make(map[string]int)}
}

// Add merges files into the selection, keeping the first occurrence of
// each. It returns how many were new.
func (s *Selection) Add(files ...domain.SelectedFile) int {
	added := 0
	for _, f := range files {
		key := f.Key()
		if _, ok := s.index[key]; ok {
			continue
		}
		s.index[key] = len(s.files)
		s.files = append(s.files, f)
		added++
	}
	return added
}

// Remove drops the file with the given key
func (s *Selection) Remove(key string) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.files = append(s.files[:i], s.files[i+1:]...)
	s.reindex()
	return true
}

// RemovePath drops every file picked from the given path
func (s *Selection) RemovePath(path string) bool {
	kept := s.files[:0]
	removed := false
	for _, f := range s.files {
		if f.Path == path {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	s.files = kept
	if removed {
		s.reindex()
	}
	return removed
}

// Clear empties the selection
func (s *Selection) Clear() {
	s.files = nil
	s.index = make(map[string]int)
}

func (s *Selection) reindex() {
	s.index = make(map[string]int, len(s.files))
	for i, f := range s.files {
		s.index[f.Key()] = i
	}
}

// Files returns a copy of the selected files in order
func (s *Selection) Files() []domain.SelectedFile {
	return append([]domain.SelectedFile(nil), s.files...)
}

// Len returns the number of selected files
func (s *Selection) Len() int {
	return len(s.files)
}

// Images returns the selected image files
func (s *Selection) Images() []domain.SelectedFile {
	var images []domain.SelectedFile
	for _, f := range s.files {
		if f.IsImage() {
			images = append(images, f)
		}
	}
	return images
}

// HasImage reports whether an image with the given name is selected
func (s *Selection) HasImage(name string) bool {
	for _, f := range s.files {
		if f.Name == name && f.IsImage() {
			return true
		}
	}
	return false
}

// DefaultMainImage is the first selected image, or "" when there is none
func (s *Selection) DefaultMainImage() string {
	for _, f := range s.files {
		if f.IsImage() {
			return f.Name
		}
	}
	return ""
}

// InspectFile builds a SelectedFile from a path on disk, sniffing its MIME
// type from content
func InspectFile(path string) (domain.SelectedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.SelectedFile{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.SelectedFile{}, fmt.Errorf("%s is a directory", path)
	}

	f := domain.SelectedFile{
		Name:    filepath.Base(path),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		f.MIMEType = mt.String()
	}
	return f, nil
}

// InspectFiles inspects every path, stopping at the first failure
func InspectFiles(paths []string) ([]domain.SelectedFile, error) {
	files := make([]domain.SelectedFile, 0, len(paths))
	for _, p := range paths {
		f, err := InspectFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
