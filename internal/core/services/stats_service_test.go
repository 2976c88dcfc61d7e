package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports/mocks"
)

func newTestStats(backend *mocks.MockAPI) *StatsService {
	cache := newTestCache()
	return NewStatsService(
		NewProjectListService(backend, cache, 2),
		NewProjectService(backend, cache, nil),
	)
}

func TestStatsService_Summary(t *testing.T) {
	backend := mocks.NewMockAPI()
	ctx := context.Background()

	_, err := backend.CreateProject(ctx, domain.NewProject{Name: "Benchy", Tags: []string{"pla", "calibration"}})
	require.NoError(t, err)
	_, err = backend.CreateProject(ctx, domain.NewProject{Name: "Vase", Tags: []string{"pla"}})
	require.NoError(t, err)
	seedProject(backend)

	stats, err := newTestStats(backend).Execute(ctx, StatsRequest{})
	require.NoError(t, err)

	require.Equal(t, 3, stats.Projects)
	require.Equal(t, 1, stats.Untagged)
	require.Equal(t, []Count{{Label: "pla", Value: 2}, {Label: "calibration", Value: 1}}, stats.Tags)
	require.Len(t, stats.Activity, 1)
	require.EqualValues(t, 3, stats.Activity[0].Value)
	require.False(t, stats.IncludeAssets)
	require.Zero(t, backend.Calls("GetProject"))
}

func TestStatsService_IncludeAssets(t *testing.T) {
	backend := mocks.NewMockAPI()
	seedProject(backend)
	backend.AddProject("Spare", domain.Asset{FilePath: "notes.txt", SizeBytes: 10})

	stats, err := newTestStats(backend).Execute(context.Background(), StatsRequest{IncludeAssets: true})
	require.NoError(t, err)

	require.True(t, stats.IncludeAssets)
	require.Equal(t, []Count{
		{Label: "image", Value: 2},
		{Label: "model", Value: 1},
		{Label: "other", Value: 1},
	}, stats.AssetsByKind)
	require.EqualValues(t, 2048+4096+(1<<20)+10, stats.TotalBytes)
	require.Equal(t, "model", stats.BytesByKind[0].Label)
	require.Equal(t, 2, backend.Calls("GetProject"))
}

func TestStatsService_DetailErrorFails(t *testing.T) {
	backend := mocks.NewMockAPI()
	seedProject(backend)
	backend.FailOn("GetProject", mocks.APIError(500, "db_down", "Database unavailable"))

	_, err := newTestStats(backend).Execute(context.Background(), StatsRequest{IncludeAssets: true})
	require.Error(t, err)
}

func TestMonthOf(t *testing.T) {
	require.Equal(t, "2024-03", monthOf("2024-03-05T10:00:00Z"))
	require.Equal(t, "2024-03", monthOf("2024-03-05T10:00:00.123456"))
	require.Equal(t, "2024-03", monthOf("2024-03-xx"))
	require.Equal(t, "", monthOf("yesterday"))
}
