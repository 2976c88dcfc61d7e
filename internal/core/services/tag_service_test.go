package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports/mocks"
)

func tagNames(tags []domain.Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}

func TestTagService_ListSortedIgnoringCase(t *testing.T) {
	backend := mocks.NewMockAPI()
	svc := NewTagService(backend, newTestCache())
	ctx := context.Background()

	for _, name := range []string{"Zinc", "apple", "Mango"} {
		_, err := svc.Create(ctx, name)
		require.NoError(t, err)
	}

	tags, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "Mango", "Zinc"}, tagNames(tags))
}

func TestTagService_ListIsCachedUntilCreate(t *testing.T) {
	backend := mocks.NewMockAPI()
	svc := NewTagService(backend, newTestCache())
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	calls := backend.Calls("ListTags")

	_, err = svc.Create(ctx, "resin")
	require.NoError(t, err)

	tags, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Greater(t, backend.Calls("ListTags"), calls)
	assert.Equal(t, []string{"resin"}, tagNames(tags))
}

func TestTagService_CreateRejectsBlank(t *testing.T) {
	backend := mocks.NewMockAPI()
	svc := NewTagService(backend, newTestCache())

	_, err := svc.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, backend.Calls("CreateTag"))
}

func TestTagService_ListError(t *testing.T) {
	backend := mocks.NewMockAPI()
	backend.FailOn("ListTags", mocks.APIError(http.StatusInternalServerError, "boom", "Server error"))
	svc := NewTagService(backend, newTestCache())

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list tags")
}
