package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/lima-cli/internal/adapters/api"
	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
	"github.com/kamal-hamza/lima-cli/internal/core/ports/mocks"
)

func stageBundle(t *testing.T, backend *mocks.MockAPI, names ...string) *domain.Bundle {
	t.Helper()
	files := make([]ports.UploadFile, len(names))
	for i, n := range names {
		files[i] = ports.UploadFile{Name: n, Path: "/tmp/" + n}
	}
	b, err := backend.CreateBundle(context.Background(), files)
	require.NoError(t, err)
	return b
}

func TestImportService_Execute(t *testing.T) {
	tests := []struct {
		name        string
		request     func(projectID, bundleID string) ImportRequest
		expectError string
		mainImage   bool
	}{
		{
			name: "import with main image",
			request: func(p, b string) ImportRequest {
				return ImportRequest{ProjectID: p, BundleID: b, MainImage: " cover.png "}
			},
			mainImage: true,
		},
		{
			name: "import without main image",
			request: func(p, b string) ImportRequest {
				return ImportRequest{ProjectID: p, BundleID: b, MainImage: "   "}
			},
		},
		{
			name: "missing bundle id",
			request: func(p, b string) ImportRequest {
				return ImportRequest{ProjectID: p}
			},
			expectError: "Missing bundle id",
		},
		{
			name: "main image not in bundle",
			request: func(p, b string) ImportRequest {
				return ImportRequest{ProjectID: p, BundleID: b, MainImage: "other.png"}
			},
			expectError: "Main image must be an image in the bundle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := mocks.NewMockAPI()
			journal := mocks.NewMockJournal()
			cache := newTestCache()
			svc := NewImportService(backend, cache, journal, nil)

			project := backend.AddProject("Dragon")
			bundle := stageBundle(t, backend, "cover.png", "body.stl")
			require.NoError(t, journal.Record(context.Background(), *bundle))

			err := svc.Execute(context.Background(), tt.request(project.ID, bundle.ID))
			if tt.expectError != "" {
				require.Error(t, err)
				require.Equal(t, tt.expectError, api.ErrorMessage(err))
				require.Equal(t, domain.BundleStaged, journal.Status(bundle.ID))
				return
			}
			require.NoError(t, err)

			updated, _ := backend.Project(project.ID)
			require.Len(t, updated.Assets, 2)
			if tt.mainImage {
				main, ok := updated.MainImage()
				require.True(t, ok)
				require.Equal(t, "cover.png", main.FilePath)
			} else {
				require.Nil(t, updated.MainImageID)
			}
			require.Equal(t, domain.BundleConsumed, journal.Status(bundle.ID))
		})
	}
}

func TestImportService_ExecuteInvalidatesReads(t *testing.T) {
	backend := mocks.NewMockAPI()
	cache := newTestCache()
	projects := NewProjectService(backend, cache, nil)
	lists := NewProjectListService(backend, cache, 50)
	svc := NewImportService(backend, cache, nil, nil)
	ctx := context.Background()

	project := backend.AddProject("Dragon")
	before, err := projects.Get(ctx, project.ID)
	require.NoError(t, err)
	require.Empty(t, before.Assets)
	_, err = lists.Execute(ctx, ListRequest{})
	require.NoError(t, err)

	bundle := stageBundle(t, backend, "cover.png")
	require.NoError(t, svc.Execute(ctx, ImportRequest{ProjectID: project.ID, BundleID: bundle.ID}))

	after, err := projects.Get(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, after.Assets, 1)

	_, err = lists.Execute(ctx, ListRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, backend.Calls("ListProjects"))
}

func TestImportService_CreateWithoutBundle(t *testing.T) {
	backend := mocks.NewMockAPI()
	svc := NewImportService(backend, newTestCache(), nil, nil)

	res, err := svc.Create(context.Background(), CreateProjectRequest{
		Name:    "  Dice tray v2 ",
		TagText: "print, PLA\npla",
	})
	require.NoError(t, err)
	require.False(t, res.Imported)

	p, ok := backend.Project(res.ProjectID)
	require.True(t, ok)
	require.Equal(t, "Dice tray v2", p.Name)
	require.Nil(t, p.Description)
	require.Len(t, p.Tags, 2)
	require.Equal(t, "print", p.Tags[0].Name)
	require.Equal(t, "PLA", p.Tags[1].Name)
	require.Equal(t, 0, backend.Calls("ImportBundle"))
}

func TestImportService_CreateBlankNameIsLocal(t *testing.T) {
	backend := mocks.NewMockAPI()
	svc := NewImportService(backend, newTestCache(), nil, nil)

	_, err := svc.Create(context.Background(), CreateProjectRequest{Name: "   "})
	require.True(t, errors.Is(err, domain.ErrValidation))
	require.Equal(t, 0, backend.Calls("CreateProject"))
}

func TestImportService_CreateWithBundle(t *testing.T) {
	backend := mocks.NewMockAPI()
	svc := NewImportService(backend, newTestCache(), nil, nil)
	bundle := stageBundle(t, backend, "cover.png", "body.stl")

	res, err := svc.Create(context.Background(), CreateProjectRequest{
		Name:      "Dragon",
		BundleID:  bundle.ID,
		MainImage: "cover.png",
	})
	require.NoError(t, err)
	require.True(t, res.Imported)

	p, _ := backend.Project(res.ProjectID)
	require.Len(t, p.Assets, 2)
	require.NotNil(t, p.MainImageID)
}

func TestImportService_CreateStepsFailDistinctly(t *testing.T) {
	t.Run("create step", func(t *testing.T) {
		backend := mocks.NewMockAPI()
		backend.FailOn("CreateProject", mocks.APIError(409, "duplicate", "Folder already exists"))
		svc := NewImportService(backend, newTestCache(), nil, nil)

		res, err := svc.Create(context.Background(), CreateProjectRequest{Name: "Dragon", BundleID: "b1"})
		require.Nil(t, res)

		var stepErr *StepError
		require.True(t, errors.As(err, &stepErr))
		require.Equal(t, StepCreate, stepErr.Step)
		require.Equal(t, "Folder already exists", api.ErrorMessage(err))
		require.Equal(t, 0, backend.Calls("ImportBundle"))
	})

	t.Run("import step", func(t *testing.T) {
		backend := mocks.NewMockAPI()
		svc := NewImportService(backend, newTestCache(), nil, nil)

		res, err := svc.Create(context.Background(), CreateProjectRequest{Name: "Dragon", BundleID: "gone"})
		require.NotNil(t, res, "the created project is still reported")
		require.False(t, res.Imported)

		var stepErr *StepError
		require.True(t, errors.As(err, &stepErr))
		require.Equal(t, StepImport, stepErr.Step)
		require.True(t, api.IsNotFound(err))

		_, exists := backend.Project(res.ProjectID)
		require.True(t, exists)
	})
}
