package api

import (
	"context"
	"net/http"
)

// HealthResponse from GET /api/health/
type HealthResponse struct {
	Status string         `json:"status"` // "ok" when every dependency is up
	Checks map[string]any `json:"checks,omitempty"`
}

// ModulesStatusResponse from GET /api/modules/status
type ModulesStatusResponse struct {
	EmotionalAnalyzer string `json:"emotional_analyzer"` // "loaded" when ready
}

// Module status values.
const (
	StatusOK     = "ok"
	ModuleLoaded = "loaded"
)

// GetHealth fetches the backend health document.
func (c *Client) GetHealth(ctx context.Context, path string) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetModulesStatus fetches the feature module status document.
func (c *Client) GetModulesStatus(ctx context.Context, path string) (*ModulesStatusResponse, error) {
	var resp ModulesStatusResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fetch downloads a raw resource, e.g. synthesized speech under /media/.
// It returns the body and its Content-Type.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, string, error) {
	body, header, err := c.doWithRetry(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	return body, header.Get("Content-Type"), nil
}
