// Package client implements the editor's HTTP access to the Devora API.
// Transport failures and error statuses are converted into the editor error
// taxonomy so the store never sees raw HTTP details.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devora/internal/editor"
	"github.com/devora/pkg/models"
)

// Client talks to the Devora REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates an API client. The token is sent as a Bearer credential on
// every request.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// errorBody is the API's error envelope
type errorBody struct {
	Error         string `json:"error"`
	RemoteVersion int64  `json:"remote_version,omitempty"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &editor.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &editor.NetworkError{Op: method + " " + path, Err: err}
		}
		return nil
	}

	var apiErr errorBody
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &apiErr)
	if apiErr.Error == "" {
		apiErr.Error = strings.TrimSpace(string(raw))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		// Only project routes carry the resource id in the path. A 404
		// from /generate or /deploy means the endpoint rejected the
		// request, not that a project named "generate" is missing.
		if id, ok := projectIDFromPath(path); ok {
			return &editor.NotFoundError{Kind: "project", ID: id}
		}
		return &editor.NetworkError{
			Op:  method + " " + path,
			Err: fmt.Errorf("not found: %s", apiErr.Error),
		}
	case http.StatusConflict:
		id, _ := projectIDFromPath(path)
		return &editor.ConflictError{ProjectID: id, RemoteVersion: apiErr.RemoteVersion}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &editor.ValidationError{Reason: apiErr.Error}
	default:
		return &editor.NetworkError{
			Op:  method + " " + path,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Error),
		}
	}
}

func projectIDFromPath(path string) (string, bool) {
	const prefix = "/api/v1/projects/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// FetchProject retrieves a project by id
func (c *Client) FetchProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/projects/"+id, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateProject allocates a new project
func (c *Client) CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	var project models.Project
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/projects", req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// SaveProject persists the current file set; 409 maps to ConflictError
func (c *Client) SaveProject(ctx context.Context, id string, req models.SaveProjectRequest) (*models.Project, error) {
	var project models.Project
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/projects/"+id, req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/projects/"+id, nil, nil)
}

// Generate runs a remote generation. The REST endpoint delivers the result
// atomically, so progress is reported only on completion.
func (c *Client) Generate(ctx context.Context, req models.GenerateRequest, progress func(pct int)) (*models.GenerateResponse, error) {
	var resp models.GenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/generate", req, &resp); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(100)
	}
	return &resp, nil
}

// Deploy enqueues a deploy job for a project
func (c *Client) Deploy(ctx context.Context, req models.DeployRequest) (*models.Deployment, error) {
	var deployment models.Deployment
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/deploy", req, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}
