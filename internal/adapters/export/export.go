// Package export writes project listings and library statistics to files
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
)

// Supported formats
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatParquet = "parquet"
)

// Extension returns the file extension for a format
func Extension(format string) string {
	switch format {
	case FormatYAML:
		return "yaml"
	case FormatParquet:
		return "parquet"
	default:
		return "json"
	}
}

// ProjectRow is the flat record written to columnar formats
type ProjectRow struct {
	ID            string `parquet:"id"`
	Name          string `parquet:"name"`
	FolderPath    string `parquet:"folder_path"`
	Description   string `parquet:"description,optional"`
	MainImageID   string `parquet:"main_image_id,optional"`
	Tags          string `parquet:"tags"`
	CreatedAt     string `parquet:"created_at"`
	UpdatedAt     string `parquet:"updated_at"`
	LastScannedAt string `parquet:"last_scanned_at,optional"`
}

// NewProjectRow flattens a listing entry. Tags are joined with ", ".
func NewProjectRow(p domain.ProjectSummary) ProjectRow {
	names := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		names[i] = t.Name
	}
	return ProjectRow{
		ID:            p.ID,
		Name:          p.Name,
		FolderPath:    p.FolderPath,
		Description:   deref(p.Description),
		MainImageID:   deref(p.MainImageID),
		Tags:          strings.Join(names, ", "),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		LastScannedAt: deref(p.LastScannedAt),
	}
}

// WriteProjects writes the listing in the given format
func WriteProjects(w io.Writer, format string, items []domain.ProjectSummary) error {
	if items == nil {
		items = []domain.ProjectSummary{}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return err
		}
		return enc.Close()

	case FormatParquet:
		rows := make([]ProjectRow, len(items))
		for i, p := range items {
			rows[i] = NewProjectRow(p)
		}
		pw := parquet.NewGenericWriter[ProjectRow](w)
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		return pw.Close()

	default:
		return domain.NewValidationError(fmt.Sprintf("Unknown export format %q", format))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
