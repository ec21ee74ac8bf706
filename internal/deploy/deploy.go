// Package deploy pushes a project's file set to a hosting target. Every
// deploy is preceded by a secret scan so leaked credentials never leave the
// platform.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/devora/pkg/models"
)

// Provider pushes a project somewhere and returns the resulting URL
type Provider interface {
	Deploy(ctx context.Context, project *models.Project, branch string) (string, error)
}

// Service coordinates preflight scanning and target selection
type Service struct {
	scanner   *Scanner
	providers map[models.DeployTarget]Provider
}

// NewService creates a deploy service. Targets without a registered
// provider are rejected at execute time.
func NewService(scanner *Scanner, providers map[models.DeployTarget]Provider) *Service {
	return &Service{scanner: scanner, providers: providers}
}

// Preflight scans the project's files and returns SecretsError when any
// potential credential is found.
func (s *Service) Preflight(project *models.Project) error {
	findings := s.scanner.Scan(project.Files)
	if len(findings) == 0 {
		return nil
	}
	log.Warn().
		Str("project_id", project.ID).
		Int("findings", len(findings)).
		Msg("Deploy blocked by secret scan")
	return &SecretsError{Findings: findings}
}

// Execute runs the preflight scan and pushes the project to the requested
// target.
func (s *Service) Execute(ctx context.Context, project *models.Project, target models.DeployTarget, branch string) (string, error) {
	if err := s.Preflight(project); err != nil {
		return "", err
	}

	provider, ok := s.providers[target]
	if !ok {
		return "", fmt.Errorf("no provider registered for deploy target %q", target)
	}

	start := time.Now()
	url, err := provider.Deploy(ctx, project, branch)
	if err != nil {
		return "", fmt.Errorf("deploy to %s failed: %w", target, err)
	}

	log.Info().
		Str("project_id", project.ID).
		Str("target", string(target)).
		Str("url", url).
		Dur("duration", time.Since(start)).
		Msg("Deploy completed")
	return url, nil
}

// HTTPProvider publishes a project by POSTing its bundle to a hosting
// endpoint that returns the public URL.
type HTTPProvider struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider for an HTTP hosting endpoint
func NewHTTPProvider(endpoint, token string) *HTTPProvider {
	return &HTTPProvider{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type deployBundle struct {
	ProjectID string         `json:"project_id"`
	Name      string         `json:"name"`
	Files     []deployedFile `json:"files"`
}

type deployedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type deployResult struct {
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

// Deploy uploads the project bundle and returns the hosted URL
func (p *HTTPProvider) Deploy(ctx context.Context, project *models.Project, _ string) (string, error) {
	bundle := deployBundle{
		ProjectID: project.ID,
		Name:      project.Name,
		Files:     make([]deployedFile, 0, len(project.Files)),
	}
	for _, f := range project.Files {
		bundle.Files = append(bundle.Files, deployedFile{Path: f.Path, Content: f.Content})
	}

	payload, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("failed to encode deploy bundle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/deployments", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deploy request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("hosting endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result deployResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode deploy response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("hosting endpoint returned no URL")
	}
	return result.URL, nil
}
