package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

type recorded struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func (r *recorded) add(req *http.Request, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, body)
}

func (r *recorded) last() (*http.Request, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[len(r.requests)-1], r.bodies[len(r.bodies)-1]
}

func setupServer(t *testing.T, register func(g *gin.RouterGroup)) (*Client, *recorded) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := &recorded{}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.ContentType() == "application/json" {
			data, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(strings.NewReader(string(data)))
			rec.add(c.Request, string(data))
		} else {
			rec.add(c.Request, "")
		}
		c.Next()
	})
	register(router.Group("/api"))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL), rec
}

func TestClient_ListProjects(t *testing.T) {
	client, rec := setupServer(t, func(g *gin.RouterGroup) {
		g.GET("/projects", func(c *gin.Context) {
			next := "cursor-2"
			c.JSON(http.StatusOK, domain.ProjectPage{
				Items:      []domain.ProjectSummary{{ID: "p1", Name: "Dragon"}, {ID: "p2", Name: "Castle"}},
				NextCursor: &next,
			})
		})
	})

	cursor := "cursor-1"
	page, err := client.ListProjects(context.Background(), ports.ListProjectsParams{
		Limit:  25,
		Cursor: &cursor,
		Query:  "  drag  ",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, "Dragon", page.Items[0].Name)
	require.NotNil(t, page.NextCursor)
	require.Equal(t, "cursor-2", *page.NextCursor)

	req, _ := rec.last()
	require.Equal(t, "25", req.URL.Query().Get("limit"))
	require.Equal(t, "cursor-1", req.URL.Query().Get("cursor"))
	require.Equal(t, "drag", req.URL.Query().Get("query"))
	require.Equal(t, "application/json", req.Header.Get("Accept"))
	require.NotEmpty(t, req.Header.Get("X-Request-Id"))
}

func TestClient_ListProjects_OmitsBlankQueryAndCursor(t *testing.T) {
	client, rec := setupServer(t, func(g *gin.RouterGroup) {
		g.GET("/projects", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"items": []any{}, "next_cursor": nil})
		})
	})

	page, err := client.ListProjects(context.Background(), ports.ListProjectsParams{Query: "   "})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Nil(t, page.NextCursor)

	req, _ := rec.last()
	_, hasQuery := req.URL.Query()["query"]
	_, hasCursor := req.URL.Query()["cursor"]
	require.False(t, hasQuery)
	require.False(t, hasCursor)
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		handler  gin.HandlerFunc
		expected string
		code     string
		status   int
	}{
		{
			name: "nested error message",
			handler: func(c *gin.Context) {
				c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_name", "message": "Name required"}})
			},
			expected: "Name required",
			code:     "invalid_name",
			status:   http.StatusBadRequest,
		},
		{
			name: "top-level message",
			handler: func(c *gin.Context) {
				c.JSON(http.StatusConflict, gin.H{"message": "Already exists"})
			},
			expected: "Already exists",
			status:   http.StatusConflict,
		},
		{
			name: "plain text body",
			handler: func(c *gin.Context) {
				c.String(http.StatusInternalServerError, "boom")
			},
			expected: "Request failed (500)",
			status:   http.StatusInternalServerError,
		},
		{
			name: "malformed json body",
			handler: func(c *gin.Context) {
				c.Data(http.StatusBadGateway, "application/json", []byte("{not json"))
			},
			expected: "Request failed (502)",
			status:   http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setupServer(t, func(g *gin.RouterGroup) {
				g.GET("/projects/:id", tt.handler)
			})

			_, err := client.GetProject(context.Background(), "p1")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.expected, ErrorMessage(err))
			require.Equal(t, tt.code, ErrorCode(err))
		})
	}
}

func TestClient_PlainTextBodyIsKept(t *testing.T) {
	client, _ := setupServer(t, func(g *gin.RouterGroup) {
		g.DELETE("/projects/:id", func(c *gin.Context) {
			c.String(http.StatusNotFound, "missing")
		})
	})

	err := client.DeleteProject(context.Background(), "p1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "missing", apiErr.Body)
	require.True(t, IsNotFound(err))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url)
	_, err := client.GetProject(context.Background(), "p1")
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, GenericFailure, ErrorMessage(err))
}

func TestErrorMessage_Validation(t *testing.T) {
	err := domain.NewValidationError("Missing bundle id")
	require.Equal(t, "Missing bundle id", ErrorMessage(err))
	require.Equal(t, GenericFailure, ErrorMessage(errors.New("anything")))
	require.Equal(t, "", ErrorMessage(nil))
}

func TestClient_UpdateProject_SendsExplicitNull(t *testing.T) {
	client, rec := setupServer(t, func(g *gin.RouterGroup) {
		g.PATCH("/projects/:id", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
	})

	err := client.UpdateProject(context.Background(), "p 1", domain.ProjectPatch{MainImageID: domain.Null[string]()})
	require.NoError(t, err)

	req, body := rec.last()
	require.Equal(t, http.MethodPatch, req.Method)
	require.Equal(t, "/api/projects/p%201", req.URL.EscapedPath())
	require.JSONEq(t, `{"main_image_id":null}`, body)
}

func TestClient_CreateProject(t *testing.T) {
	client, rec := setupServer(t, func(g *gin.RouterGroup) {
		g.POST("/projects", func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"id": "p9", "folder_path": "dragon"})
		})
	})

	created, err := client.CreateProject(context.Background(), domain.NewProject{
		Name:        "Dragon",
		Description: "a dragon",
		Tags:        []string{"resin"},
	})
	require.NoError(t, err)
	require.Equal(t, "p9", created.ID)
	require.Equal(t, "dragon", created.FolderPath)

	_, body := rec.last()
	require.JSONEq(t, `{"name":"Dragon","description":"a dragon","tags":["resin"]}`, body)
}

func TestClient_ImportBundle_OmitsBlankMainImage(t *testing.T) {
	client, rec := setupServer(t, func(g *gin.RouterGroup) {
		g.POST("/projects/:id/import", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
	})

	err := client.ImportBundle(context.Background(), "p1", domain.ImportRequest{BundleID: "b1"})
	require.NoError(t, err)

	_, body := rec.last()
	require.JSONEq(t, `{"bundle_id":"b1"}`, body)
}

func TestClient_CreateBundle(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
	)
	client, _ := setupServer(t, func(g *gin.RouterGroup) {
		g.POST("/bundles", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_multipart", "message": err.Error()}})
				return
			}
			var names []string
			for _, fh := range form.File[BundleFileField] {
				names = append(names, fh.Filename)
			}
			sort.Strings(names)
			mu.Lock()
			received = names
			mu.Unlock()
			c.JSON(http.StatusCreated, gin.H{"id": "b1", "files": names, "failed_files": []string{}})
		})
	})

	dir := t.TempDir()
	for _, name := range []string{"cover.png", "part.stl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data-"+name), 0644))
	}

	bundle, err := client.CreateBundle(context.Background(), []ports.UploadFile{
		{Name: "cover.png", Path: filepath.Join(dir, "cover.png")},
		{Name: "part.stl", Path: filepath.Join(dir, "part.stl")},
	})
	require.NoError(t, err)
	require.Equal(t, "b1", bundle.ID)
	require.Equal(t, []string{"cover.png", "part.stl"}, bundle.Files)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"cover.png", "part.stl"}, received)
}

func TestClient_CreateBundle_MissingFile(t *testing.T) {
	client, rec := setupServer(t, func(g *gin.RouterGroup) {
		g.POST("/bundles", func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"id": "b1"})
		})
	})

	_, err := client.CreateBundle(context.Background(), []ports.UploadFile{
		{Name: "gone.png", Path: filepath.Join(t.TempDir(), "gone.png")},
	})
	require.Error(t, err)
	require.Empty(t, rec.requests)
}

func TestClient_Health(t *testing.T) {
	client, _ := setupServer(t, func(g *gin.RouterGroup) {
		g.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"db": true})
		})
	})

	ok, err := client.Health(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestClient_Tags(t *testing.T) {
	client, rec := setupServer(t, func(g *gin.RouterGroup) {
		g.GET("/tags", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"items":       []gin.H{{"id": "t1", "name": "resin", "color": "#ff0000"}},
				"next_cursor": nil,
			})
		})
		g.POST("/tags", func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"id": "t2", "name": "fdm", "color": "#00ff00"})
		})
	})

	page, err := client.ListTags(context.Background(), 100, nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "#ff0000", page.Items[0].Color)

	tag, err := client.CreateTag(context.Background(), "fdm")
	require.NoError(t, err)
	require.Equal(t, "t2", tag.ID)

	_, body := rec.last()
	require.JSONEq(t, `{"name":"fdm"}`, body)
}

func TestEncodeURIComponent(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"plain", "plain"},
		{"with space", "with%20space"},
		{"a/b", "a%2Fb"},
		{"it's (ok)!", "it's%20(ok)!"},
		{"x+y=z&q", "x%2By%3Dz%26q"},
		{"ü", "%C3%BC"},
		{"~_.-*", "~_.-*"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, EncodeURIComponent(tt.in), "input %q", tt.in)
	}
}
