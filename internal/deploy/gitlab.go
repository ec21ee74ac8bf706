package deploy

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/devora/pkg/models"
)

// GitLabConfig contains configuration for the GitLab export target
type GitLabConfig struct {
	URL       string `koanf:"url"`
	Token     string `koanf:"token"`
	Namespace string `koanf:"namespace"`
}

// GitLabExporter pushes a project's files into a GitLab repository. The
// repository is created under the configured namespace on first export.
type GitLabExporter struct {
	client *gitlab.Client
	config GitLabConfig
}

// NewGitLabExporter creates the exporter
func NewGitLabExporter(config GitLabConfig) (*GitLabExporter, error) {
	opts := []gitlab.ClientOptionFunc{}
	if config.URL != "" {
		opts = append(opts, gitlab.WithBaseURL(fmt.Sprintf("%s/api/v4", strings.TrimRight(config.URL, "/"))))
	}
	client, err := gitlab.NewClient(config.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	return &GitLabExporter{client: client, config: config}, nil
}

// Deploy commits the project's current file set to its repository and
// returns the repository URL. Files already in the repository are updated,
// new ones created.
func (e *GitLabExporter) Deploy(ctx context.Context, project *models.Project, branch string) (string, error) {
	if branch == "" {
		branch = "main"
	}

	repo, err := e.ensureRepository(ctx, project)
	if err != nil {
		return "", err
	}

	existing, err := e.existingPaths(ctx, repo.ID, branch)
	if err != nil {
		return "", err
	}

	actions := make([]*gitlab.CommitActionOptions, 0, len(project.Files))
	for _, f := range project.Files {
		action := gitlab.FileCreate
		if existing[f.Path] {
			action = gitlab.FileUpdate
		}
		actions = append(actions, &gitlab.CommitActionOptions{
			Action:   gitlab.Ptr(action),
			FilePath: gitlab.Ptr(f.Path),
			Content:  gitlab.Ptr(f.Content),
		})
	}
	if len(actions) == 0 {
		return repo.WebURL, nil
	}

	commitMessage := fmt.Sprintf("Export %s (version %d)", project.Name, project.Version)
	commit, _, err := e.client.Commits.CreateCommit(repo.ID, &gitlab.CreateCommitOptions{
		Branch:        gitlab.Ptr(branch),
		CommitMessage: gitlab.Ptr(commitMessage),
		Actions:       actions,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to commit project files: %w", err)
	}

	log.Info().
		Str("project_id", project.ID).
		Str("commit", commit.ShortID).
		Int("files", len(actions)).
		Msg("Exported project to GitLab")
	return repo.WebURL, nil
}

func (e *GitLabExporter) ensureRepository(ctx context.Context, project *models.Project) (*gitlab.Project, error) {
	path := repositorySlug(project.Name)
	fullPath := path
	if e.config.Namespace != "" {
		fullPath = e.config.Namespace + "/" + path
	}

	repo, resp, err := e.client.Projects.GetProject(fullPath, nil, gitlab.WithContext(ctx))
	if err == nil {
		return repo, nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("failed to look up repository %s: %w", fullPath, err)
	}

	repo, _, err = e.client.Projects.CreateProject(&gitlab.CreateProjectOptions{
		Name:        gitlab.Ptr(project.Name),
		Path:        gitlab.Ptr(path),
		Description: gitlab.Ptr(project.Description),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create repository %s: %w", fullPath, err)
	}
	return repo, nil
}

func (e *GitLabExporter) existingPaths(ctx context.Context, repoID int, branch string) (map[string]bool, error) {
	paths := map[string]bool{}
	opt := &gitlab.ListTreeOptions{
		Ref:         gitlab.Ptr(branch),
		Recursive:   gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	for {
		tree, resp, err := e.client.Repositories.ListTree(repoID, opt, gitlab.WithContext(ctx))
		if err != nil {
			// A brand new repository has no tree yet
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return paths, nil
			}
			return nil, fmt.Errorf("failed to list repository tree: %w", err)
		}
		for _, node := range tree {
			if node.Type == "blob" {
				paths[node.Path] = true
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return paths, nil
}

func repositorySlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := true
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
