// Package backendclient provides the HTTP client for the remote
// indexing/query backend.
package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/byn52602/ask-my-github/domain"
)

// Client is an HTTP client for the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // indexing can take a while
		},
	}
}

// Query calls POST /api/query and returns the answer with its context
// chunks.
func (c *Client) Query(ctx context.Context, question, repoURL string, topK int) (*domain.QueryResult, error) {
	req := domain.QueryRequest{
		Question: question,
		RepoURL:  repoURL,
		TopK:     topK,
	}

	var resp domain.QueryResponse
	if err := c.post(ctx, "/api/query", req, &resp); err != nil {
		return nil, err
	}

	return &domain.QueryResult{
		Answer: resp.Answer,
		Chunks: resp.Chunks,
	}, nil
}

// Index calls POST /api/index and returns the reported status.
func (c *Client) Index(ctx context.Context, repoURL, branch string) (string, error) {
	req := domain.IndexRequest{
		RepoURL: repoURL,
		Branch:  branch,
	}

	var resp domain.StatusResponse
	if err := c.post(ctx, "/api/index", req, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Health calls GET /api/health and returns the reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var status domain.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode health response: %w", err)
	}
	return status.Status, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", "req_"+uuid.New().String()[:8])

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
