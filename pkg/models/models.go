package models

import (
	"time"
)

// Editor domain models

// Project represents a user's generated application: its source files plus
// the AI conversation that produced them.
type Project struct {
	ID            string        `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Description   string        `json:"description" db:"description"`
	Files         []ProjectFile `json:"files"`
	Conversation  []ChatMessage `json:"conversation"`
	Version       int64         `json:"version" db:"version"`
	DeploymentURL *string       `json:"deployment_url,omitempty" db:"deployment_url"`
	RepositoryURL *string       `json:"repository_url,omitempty" db:"repository_url"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// ProjectFile represents one source file within a project
type ProjectFile struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Path      string    `json:"path" db:"path"`
	Content   string    `json:"content" db:"content"`
	Language  string    `json:"language" db:"language"`
	IsDirty   bool      `json:"is_dirty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MessageRole identifies the author of a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// MessageStatus tracks the delivery state of a chat message
type MessageStatus string

const (
	MessageSending   MessageStatus = "sending"
	MessageSent      MessageStatus = "sent"
	MessageError     MessageStatus = "error"
	MessageStreaming MessageStatus = "streaming"
)

// ChatMessage represents one turn in the AI conversation. Messages are only
// ever appended to a conversation, never removed.
type ChatMessage struct {
	ID        string         `json:"id"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Status    MessageStatus  `json:"status"`
	Plan      *ExecutionPlan `json:"plan,omitempty"`
	Changes   []CodeChange   `json:"changes,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// PlanStatus tracks the lifecycle of an execution plan
type PlanStatus string

const (
	PlanPending   PlanStatus = "pending"
	PlanApproved  PlanStatus = "approved"
	PlanExecuting PlanStatus = "executing"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

// ExecutionPlan is a multi-step code change proposed by the AI. A plan that
// requires confirmation must be approved before it may enter the executing
// state.
type ExecutionPlan struct {
	ID                   string          `json:"id"`
	Description          string          `json:"description"`
	Steps                []ExecutionStep `json:"steps"`
	Status               PlanStatus      `json:"status"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
}

// StepStatus tracks one unit of work within a plan
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// ExecutionStep is one unit of work within an execution plan
type ExecutionStep struct {
	ID            string     `json:"id"`
	Description   string     `json:"description"`
	Status        StepStatus `json:"status"`
	AffectedPaths []string   `json:"affected_paths,omitempty"`
	Error         *string    `json:"error,omitempty"`
}

// ChangeType identifies how a code change applies to its target file
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeModify ChangeType = "modify"
	ChangeDelete ChangeType = "delete"
)

// CodeChange is a single-file edit produced by a generation. It is applied
// to the matching project file and then discarded.
type CodeChange struct {
	Path            string     `json:"path"`
	OriginalContent string     `json:"original_content,omitempty"`
	NewContent      string     `json:"new_content"`
	Diff            *string    `json:"diff,omitempty"`
	Type            ChangeType `json:"type"`
}

// User represents an account that owns projects
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never expose password hash in JSON
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// API request/response models

// CreateProjectRequest is the payload for POST /projects
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// SaveProjectRequest is the payload for PUT /projects/:id. Version carries
// the version the client last loaded so the server can detect stale saves.
type SaveProjectRequest struct {
	Files        []ProjectFile `json:"files"`
	Conversation []ChatMessage `json:"conversation"`
	Version      int64         `json:"version"`
}

// GenerateRequest is the payload for POST /generate
type GenerateRequest struct {
	Prompt       string        `json:"prompt" validate:"required"`
	ProjectID    string        `json:"project_id"`
	Conversation []ChatMessage `json:"conversation_history,omitempty"`
}

// GenerateResponse carries the generation result: a chat message plus the
// ordered code changes to apply
type GenerateResponse struct {
	Message ChatMessage  `json:"message"`
	Changes []CodeChange `json:"changes"`
}

// DeployTarget identifies where a project's file set is pushed
type DeployTarget string

const (
	DeployTargetHTTP   DeployTarget = "http"
	DeployTargetGitLab DeployTarget = "gitlab"
)

// DeployRequest is the payload for POST /deploy
type DeployRequest struct {
	ProjectID string       `json:"project_id" validate:"required"`
	Target    DeployTarget `json:"target"`
	Branch    string       `json:"branch,omitempty"`
}

// Deployment records the outcome of one deploy job
type Deployment struct {
	ID         int64      `json:"id" db:"id"`
	ProjectID  string     `json:"project_id" db:"project_id"`
	Target     string     `json:"target" db:"target"`
	Status     string     `json:"status" db:"status"`
	URL        *string    `json:"url,omitempty" db:"url"`
	FailReason *string    `json:"fail_reason,omitempty" db:"fail_reason"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
