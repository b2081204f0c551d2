// Package maintenance triggers the crowdsource server's maintenance sweep
// over HTTP, for deployments that schedule it from outside the server.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/crowdapi"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/httpx"
)

// ErrForbidden is returned when the server rejects the maintenance token.
var ErrForbidden = errors.New("maintenance token rejected")

// Client calls POST /maintenance/cleanup.
type Client struct {
	http    *httpx.Client
	baseURL string
	token   string
}

// NewClient creates a Client for the server at baseURL.
func NewClient(hc *httpx.Client, baseURL, token string) *Client {
	return &Client{http: hc, baseURL: baseURL, token: token}
}

// Cleanup runs one sweep and returns the number of demoted strategies.
func (c *Client) Cleanup(ctx context.Context) (crowdapi.CleanupResponse, error) {
	if c.token == "" {
		return crowdapi.CleanupResponse{}, fmt.Errorf("%w: token is empty", ErrForbidden)
	}

	resp, err := c.http.Post(ctx, c.baseURL+"/maintenance/cleanup", http.Header{
		crowdapi.MaintenanceTokenHeader: {c.token},
	})
	if err != nil {
		return crowdapi.CleanupResponse{}, fmt.Errorf("cleanup request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return crowdapi.CleanupResponse{}, ErrForbidden
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return crowdapi.CleanupResponse{}, fmt.Errorf("cleanup: unexpected status %d: %s", resp.StatusCode, body)
	}

	var out crowdapi.CleanupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return crowdapi.CleanupResponse{}, fmt.Errorf("cleanup decode: %w", err)
	}
	return out, nil
}
