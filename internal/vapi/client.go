// Package vapi is a minimal client for the voice-AI platform's REST API.
// The only operation this service needs is fetching a call's post-hoc
// summary, and that call is strictly best-effort: callers degrade to an
// absent summary on any failure.
package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// NoSummary is returned when the platform responded but carried no usable
// summary text.
const NoSummary = "no summary available"

// callDetail is the subset of the platform's call object we read.
type callDetail struct {
	Summary  string `json:"summary"`
	Analysis struct {
		Summary string `json:"summary"`
	} `json:"analysis"`
}

// Client is an HTTP client for the platform API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a platform API client. baseURL is the API endpoint
// (e.g., "https://api.vapi.ai"); apiKey authenticates each request.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Configured returns true if the client has a base URL and API key.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// FetchSummary retrieves the summary for a call from the platform. It
// prefers the call's direct summary field and falls back to the analysis
// summary; if both are blank it returns NoSummary. Any transport, status or
// decoding failure is returned as an error for the caller to downgrade.
func (c *Client) FetchSummary(ctx context.Context, callID string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("vapi: api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call/"+callID, nil)
	if err != nil {
		return "", fmt.Errorf("vapi: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vapi: fetching call %s: %w", callID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("vapi: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vapi: call %s returned status %d", callID, resp.StatusCode)
	}

	var detail callDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return "", fmt.Errorf("vapi: decoding call %s: %w", callID, err)
	}

	summary := strings.TrimSpace(detail.Summary)
	if summary == "" {
		summary = strings.TrimSpace(detail.Analysis.Summary)
	}
	if summary == "" {
		slog.Debug("call has no summary", "call_id", callID)
		return NoSummary, nil
	}

	return summary, nil
}
