package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

const tagPageSize = 200

// TagService lists and creates tags
type TagService struct {
	api   ports.TagAPI
	cache *QueryCache
}

// NewTagService creates a new tag service
func NewTagService(api ports.TagAPI, cache *QueryCache) *TagService {
	return &TagService{api: api, cache: cache}
}

// List returns every tag, sorted by name
func (s *TagService) List(ctx context.Context) ([]domain.Tag, error) {
	return Fetch(ctx, s.cache, TagsKey(), func(ctx context.Context) ([]domain.Tag, error) {
		var (
			all    []domain.Tag
			cursor *string
			seen   = make(map[string]bool)
		)
		for {
			page, err := s.api.ListTags(ctx, tagPageSize, cursor)
			if err != nil {
				return nil, fmt.Errorf("failed to list tags: %w", err)
			}
			for _, t := range page.Items {
				if !seen[t.ID] {
					seen[t.ID] = true
					all = append(all, t)
				}
			}
			if page.NextCursor == nil || len(page.Items) == 0 {
				break
			}
			cursor = page.NextCursor
		}
		sort.SliceStable(all, func(i, j int) bool {
			return strings.ToLower(all[i].Name) < strings.ToLower(all[j].Name)
		})
		return all, nil
	})
}

// Create creates a tag
func (s *TagService) Create(ctx context.Context, name string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("Tag name is required")
	}
	tag, err := s.api.CreateTag(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(TagsKey())
	return tag, nil
}
