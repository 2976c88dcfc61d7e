package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

var _ ports.API = (*Client)(nil)

// ListProjects fetches one page of projects
func (c *Client) ListProjects(ctx context.Context, params ports.ListProjectsParams) (*domain.ProjectPage, error) {
	query := url.Values{}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Cursor != nil {
		query.Set("cursor", *params.Cursor)
	}
	if q := strings.TrimSpace(params.Query); q != "" {
		query.Set("query", q)
	}

	var page domain.ProjectPage
	if err := c.getJSON(ctx, "/projects", "/projects", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProject fetches a project with its assets and tags
func (c *Client) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var project domain.Project
	if err := c.getJSON(ctx, "/projects/{id}", "/projects/"+segment(id), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateProject creates an empty project
func (c *Client) CreateProject(ctx context.Context, project domain.NewProject) (*domain.CreatedProject, error) {
	var created domain.CreatedProject
	ok, err := c.sendJSON(ctx, http.MethodPost, "/projects", "/projects", project, &created)
	if err != nil {
		return nil, err
	}
	if !ok || created.ID == "" {
		return nil, fmt.Errorf("create project: server returned no project id")
	}
	return &created, nil
}

// UpdateProject applies a partial update
func (c *Client) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) error {
	_, err := c.sendJSON(ctx, http.MethodPatch, "/projects/{id}", "/projects/"+segment(id), patch, nil)
	return err
}

// DeleteProject removes a project
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.sendNoBody(ctx, http.MethodDelete, "/projects/{id}", "/projects/"+segment(id))
}

// DeleteAsset removes one asset from a project
func (c *Client) DeleteAsset(ctx context.Context, projectID, assetID string) error {
	return c.sendNoBody(ctx, http.MethodDelete,
		"/projects/{id}/assets/{asset_id}",
		"/projects/"+segment(projectID)+"/assets/"+segment(assetID))
}

// ImportBundle moves a staged bundle into a project
func (c *Client) ImportBundle(ctx context.Context, projectID string, req domain.ImportRequest) error {
	_, err := c.sendJSON(ctx, http.MethodPost,
		"/projects/{id}/import",
		"/projects/"+segment(projectID)+"/import", req, nil)
	return err
}
