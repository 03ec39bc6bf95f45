package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jonathan/cv-builder/internal/types"
)

// GenerateLetter asks the generation service for a cover letter. Each call spends one credit.
func (c *Client) GenerateLetter(ctx context.Context, form *types.CoverLetterFormData) (*types.GeneratedLetter, error) {
	var letter types.GeneratedLetter
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/ai", body: form, out: &letter}); err != nil {
		return nil, err
	}
	return &letter, nil
}

// SaveLetter stores a (possibly edited) letter together with the form data it came from.
func (c *Client) SaveLetter(ctx context.Context, req *types.SaveLetterRequest) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/api/ai/save", body: req})
}

// ExportLetter downloads a saved letter as a binary document.
func (c *Client) ExportLetter(ctx context.Context, id string, format types.ExportFormat) ([]byte, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	data, _, err := c.doBytes(ctx, request{
		method: http.MethodGet,
		path:   "/api/ai/letters/" + url.PathEscape(id) + "/export/" + string(format),
	})
	return data, err
}

// Credits returns the user's remaining generation credits.
func (c *Client) Credits(ctx context.Context) (int, error) {
	var resp types.CreditsResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/ai/credits", out: &resp}); err != nil {
		return 0, err
	}
	return resp.Credits, nil
}
