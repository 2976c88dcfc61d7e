package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
)

// Labels shown in place of an image that could not be loaded
const (
	ThumbFallbackLabel = "THUMB 404"
	ImageFallbackLabel = "IMAGE FAILED"
)

// JoinURLSegments splits every argument on "/", drops empty pieces and
// escapes each remaining segment
func JoinURLSegments(segs ...string) string {
	var parts []string
	for _, s := range segs {
		for _, p := range strings.Split(s, "/") {
			if p == "" {
				continue
			}
			parts = append(parts, EncodeURIComponent(p))
		}
	}
	return strings.Join(parts, "/")
}

// ThumbPath is the server path of an asset's generated thumbnail
func ThumbPath(projectID, assetID string) string {
	return "/media/thumbs/" + EncodeURIComponent(projectID) + "/" + EncodeURIComponent(assetID) + ".jpg"
}

// LibraryPath is the server path of an original file in the library
func LibraryPath(folderPath, filePath string) string {
	return "/media/library/" + JoinURLSegments(folderPath, filePath)
}

// MediaURL makes a media path absolute against the client's base URL
func (c *Client) MediaURL(path string) string {
	return c.baseURL + path
}

// AssetMediaURL returns the URL of an asset's original file, or its
// thumbnail when thumb is set
func (c *Client) AssetMediaURL(project *domain.Project, asset domain.Asset, thumb bool) string {
	if thumb {
		return c.MediaURL(ThumbPath(project.ID, asset.ID))
	}
	return c.MediaURL(LibraryPath(project.FolderPath, asset.FilePath))
}

// Media is the outcome of loading a media URL. A failed load is not an
// error: Failed is set and Label carries the placeholder to show instead.
type Media struct {
	URL         string
	ContentType string
	Data        []byte
	Failed      bool
	Label       string
}

// FetchMedia downloads a media path. fallback is the label to report when
// the image cannot be loaded.
func (c *Client) FetchMedia(ctx context.Context, path, fallback string) *Media {
	m := &Media{URL: c.MediaURL(path)}

	fail := func(err error) *Media {
		c.logger.Sugar().Debugw("media load failed", "url", m.URL, "error", err)
		m.Failed = true
		m.Label = fallback
		return m
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return fail(err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fail(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("status %d", res.StatusCode))
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fail(err)
	}

	m.ContentType = res.Header.Get("Content-Type")
	m.Data = data
	return m
}
