package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

// BundleFileField is the repeated multipart field carrying bundle files
const BundleFileField = "files[]"

// CreateBundle uploads every file as a new bundle. The body is streamed
// through a pipe so large files are never held in memory.
func (c *Client) CreateBundle(ctx context.Context, files []ports.UploadFile) (*domain.Bundle, error) {
	for _, f := range files {
		if _, err := os.Stat(f.Path); err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", f.Name, err)
		}
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeBundleForm(form, files))
	}()

	var bundle domain.Bundle
	err := c.postMultipart(ctx, "/bundles", "/bundles", pr, form.FormDataContentType(), &bundle)
	// Unblock the writer if the request ended before the body was consumed.
	pr.Close()
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func writeBundleForm(form *multipart.Writer, files []ports.UploadFile) error {
	for _, f := range files {
		if err := writeBundlePart(form, f); err != nil {
			return err
		}
	}
	return form.Close()
}

func writeBundlePart(form *multipart.Writer, f ports.UploadFile) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	part, err := form.CreateFormFile(BundleFileField, f.Name)
	if err != nil {
		return fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Name, err)
	}
	return nil
}

// DeleteBundle discards a staged bundle
func (c *Client) DeleteBundle(ctx context.Context, id string) error {
	return c.sendNoBody(ctx, http.MethodDelete, "/bundles/{id}", "/bundles/"+segment(id))
}
