// Package drone provides a client for the Drone CI REST API.
package drone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"drone-builds/src/provider"
)

// Client is a Drone API client.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// Repo represents a repository as returned by /api/user/repos.
type Repo struct {
	ID       int64  `json:"id"`
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// Build represents a Drone build as returned by /api/repos/{repo}/builds.
type Build struct {
	ID       int64  `json:"id"`
	Number   int    `json:"number"`
	Event    string `json:"event"`
	Status   string `json:"status"`
	Started  int64  `json:"started_at"`
	Finished int64  `json:"finished_at"`
	Commit   string `json:"commit"`
	Branch   string `json:"branch"`
	Ref      string `json:"ref"`
	LinkURL  string `json:"link_url"`
	Message  string `json:"message"`
	Author   string `json:"author"`
	DeployTo string `json:"deploy_to"`
}

// APIError is returned when the server answers with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Drone API error %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Unwrap lets callers match auth and not-found failures with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return provider.ErrAuthFailed
	case http.StatusNotFound:
		return provider.ErrRepoNotFound
	}
	return nil
}

// NewClient creates a new Drone API client for the server at baseURL.
// A zero timeout leaves requests unbounded.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ListRepos fetches the repositories visible to the token.
func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	var repos []Repo
	if err := c.get(ctx, "/api/user/repos", &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// ListBuilds fetches the build history of a repository, newest first.
func (c *Client) ListBuilds(ctx context.Context, fullName string) ([]Build, error) {
	var builds []Build
	if err := c.get(ctx, "/api/repos/"+fullName+"/builds", &builds); err != nil {
		return nil, err
	}
	return builds, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
