package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/services"
)

func sampleProjects() []domain.ProjectSummary {
	desc := "Spiral vase mode"
	return []domain.ProjectSummary{
		{
			ID: "p1", Name: "Vase", FolderPath: "vase", Description: &desc,
			CreatedAt: "2024-03-01T10:00:00Z", UpdatedAt: "2024-03-02T10:00:00Z",
			Tags: []domain.Tag{{ID: "t1", Name: "pla"}, {ID: "t2", Name: "print"}},
		},
		{
			ID: "p2", Name: "Benchy", FolderPath: "benchy",
			CreatedAt: "2024-04-01T10:00:00Z", UpdatedAt: "2024-04-01T10:00:00Z",
		},
	}
}

func TestWriteProjects_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProjects(&buf, FormatJSON, sampleProjects()))

	var got []domain.ProjectSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Spiral vase mode", *got[0].Description)
	assert.Nil(t, got[1].Description)
}

func TestWriteProjects_EmptyJSONIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProjects(&buf, FormatJSON, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestWriteProjects_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProjects(&buf, FormatYAML, sampleProjects()))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "vase", got[0]["folder_path"])
	_, hasDesc := got[1]["description"]
	assert.False(t, hasDesc)
}

func TestWriteProjects_Parquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProjects(&buf, FormatParquet, sampleProjects()))

	reader := parquet.NewGenericReader[ProjectRow](bytes.NewReader(buf.Bytes()))
	defer reader.Close()
	require.EqualValues(t, 2, reader.NumRows())

	rows := make([]ProjectRow, 2)
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}
	require.Equal(t, 2, n)
	assert.Equal(t, "pla, print", rows[0].Tags)
	assert.Equal(t, "Spiral vase mode", rows[0].Description)
	assert.Equal(t, "", rows[1].Description)
}

func TestWriteProjects_UnknownFormat(t *testing.T) {
	err := WriteProjects(io.Discard, "csv", nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "json", Extension(FormatJSON))
	assert.Equal(t, "yaml", Extension(FormatYAML))
	assert.Equal(t, "parquet", Extension(FormatParquet))
	assert.Equal(t, "json", Extension(""))
}

func TestWriteStatsPage(t *testing.T) {
	stats := &services.LibraryStats{
		Projects: 3,
		Tags:     []services.Count{{Label: "pla", Value: 2}},
		Activity: []services.Count{{Label: "2024-03", Value: 3}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatsPage(&buf, stats))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Activity")
	assert.NotContains(t, html, "Files by kind")

	stats.IncludeAssets = true
	stats.AssetsByKind = []services.Count{{Label: "image", Value: 4}}
	buf.Reset()
	require.NoError(t, WriteStatsPage(&buf, stats))
	assert.Contains(t, buf.String(), "Files by kind")
}
