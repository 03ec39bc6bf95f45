package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jonathan/cv-builder/internal/types"
)

// CreateCV stores a new CV and returns its id.
func (c *Client) CreateCV(ctx context.Context, req *types.CreateCVRequest) (string, error) {
	var resp types.CreateCVResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/cv", body: req, out: &resp}); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &RequestError{Method: http.MethodPost, Path: "/api/cv", Message: "response has no CV id"}
	}
	return resp.ID, nil
}

// GetCV loads one CV with its sections.
func (c *Client) GetCV(ctx context.Context, id string) (*types.CV, error) {
	var cv types.CV
	if err := c.do(ctx, request{method: http.MethodGet, path: cvPath(id), out: &cv}); err != nil {
		return nil, err
	}
	return &cv, nil
}

// ListCVs returns the user's CVs.
func (c *Client) ListCVs(ctx context.Context) ([]types.CV, error) {
	cvs := []types.CV{}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/cv", out: &cvs}); err != nil {
		return nil, err
	}
	return cvs, nil
}

// UpdateCV replaces the sections, template and status of a stored CV.
func (c *Client) UpdateCV(ctx context.Context, id string, req *types.UpdateCVRequest) error {
	return c.do(ctx, request{method: http.MethodPut, path: cvPath(id), body: req})
}

// DeleteCV removes a stored CV.
func (c *Client) DeleteCV(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: cvPath(id)})
}

// Preview renders sections with a template and returns the HTML.
func (c *Client) Preview(ctx context.Context, req *types.RenderRequest) (string, error) {
	var resp types.PreviewResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/cv/preview", body: req, out: &resp}); err != nil {
		return "", err
	}
	return resp.HTML, nil
}

// Export renders sections into a binary document.
func (c *Client) Export(ctx context.Context, format types.ExportFormat, req *types.RenderRequest) ([]byte, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	data, _, err := c.doBytes(ctx, request{
		method: http.MethodPost,
		path:   "/api/cv/export/" + string(format),
		body:   req,
	})
	return data, err
}

func cvPath(id string) string {
	return "/api/cv/" + url.PathEscape(id)
}
