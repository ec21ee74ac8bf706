package projects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devora/pkg/models"
)

// ErrNotFound is returned when a project id is unknown
var ErrNotFound = errors.New("project not found")

// ConflictError is returned when a save carries a stale version
type ConflictError struct {
	ProjectID     string
	RemoteVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("project %s is at version %d remotely", e.ProjectID, e.RemoteVersion)
}

// Service handles project persistence
type Service struct {
	db *sql.DB
}

// NewService creates a new project service
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create allocates a new empty project
func (s *Service) Create(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("project name is required")
	}

	now := time.Now()
	project := &models.Project{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		Files:        []models.ProjectFile{},
		Conversation: []models.ChatMessage{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, version, conversation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, project.ID, project.Name, project.Description, project.Version, "[]", now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// Get loads a project with its files and conversation
func (s *Service) Get(ctx context.Context, id string) (*models.Project, error) {
	var (
		project      models.Project
		conversation []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, version, conversation, deployment_url, repository_url, created_at, updated_at
		FROM projects WHERE id = $1
	`, id).Scan(&project.ID, &project.Name, &project.Description, &project.Version,
		&conversation, &project.DeploymentURL, &project.RepositoryURL,
		&project.CreatedAt, &project.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if err := json.Unmarshal(conversation, &project.Conversation); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, path, content, language, created_at, updated_at
		FROM project_files WHERE project_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project files: %w", err)
	}
	defer rows.Close()

	project.Files = []models.ProjectFile{}
	for rows.Next() {
		var f models.ProjectFile
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &f.Content, &f.Language, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project file: %w", err)
		}
		project.Files = append(project.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read project files: %w", err)
	}

	return &project, nil
}

// List returns project summaries, newest first. Files and conversations are
// not loaded; use Get for the full project.
func (s *Service) List(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, version, deployment_url, repository_url, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Version,
			&p.DeploymentURL, &p.RepositoryURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read projects: %w", err)
	}
	return projects, nil
}

// Save replaces a project's file set and conversation. The request version
// must match the stored version; otherwise the save is rejected with
// ConflictError and nothing changes.
func (s *Service) Save(ctx context.Context, id string, req models.SaveProjectRequest) (*models.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM projects WHERE id = $1 FOR UPDATE`, id).Scan(&currentVersion)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock project: %w", err)
	}

	if currentVersion != req.Version {
		return nil, &ConflictError{ProjectID: id, RemoteVersion: currentVersion}
	}

	conversation, err := json.Marshal(req.Conversation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode conversation: %w", err)
	}

	now := time.Now()
	newVersion := currentVersion + 1
	_, err = tx.ExecContext(ctx, `
		UPDATE projects SET version = $1, conversation = $2, updated_at = $3 WHERE id = $4
	`, newVersion, conversation, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_files WHERE project_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to clear project files: %w", err)
	}
	for position, f := range req.Files {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO project_files (id, project_id, name, path, content, language, position, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, f.ID, id, f.Name, f.Path, f.Content, f.Language, position, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert project file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit save: %w", err)
	}

	return s.Get(ctx, id)
}

// Delete removes a project and its files
func (s *Service) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDeploymentURL records the URL produced by a finished deploy
func (s *Service) SetDeploymentURL(ctx context.Context, id, url string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects SET deployment_url = $1, updated_at = $2 WHERE id = $3
	`, url, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to record deployment url: %w", err)
	}
	return nil
}
