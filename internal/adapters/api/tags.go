package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
)

// ListTags fetches one page of tags
func (c *Client) ListTags(ctx context.Context, limit int, cursor *string) (*domain.TagPage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != nil {
		query.Set("cursor", *cursor)
	}

	var page domain.TagPage
	if err := c.getJSON(ctx, "/tags", "/tags", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateTag creates a tag by name
func (c *Client) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	var tag domain.Tag
	ok, err := c.sendJSON(ctx, http.MethodPost, "/tags", "/tags", map[string]string{"name": name}, &tag)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("create tag: server returned no tag")
	}
	return &tag, nil
}

type healthResponse struct {
	DB bool `json:"db"`
}

// Health reports whether the backend can reach its database
func (c *Client) Health(ctx context.Context) (bool, error) {
	var res healthResponse
	if err := c.getJSON(ctx, "/health", "/health", nil, &res); err != nil {
		return false, err
	}
	return res.DB, nil
}
