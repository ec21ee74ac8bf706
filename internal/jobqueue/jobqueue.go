/*
Package jobqueue provides a River-based job queue for project deploys.

Deploys run asynchronously: the API enqueues a job after a synchronous
secret-scan preflight, workers push the project to its target and record
the outcome in the deployments table.

For worker counts, retry policy, and timeouts, see queue_config.go.
*/
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/devora/internal/deploy"
	"github.com/devora/internal/projects"
	"github.com/devora/pkg/models"
)

// Deploy job status values recorded in the deployments table
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// DeployJobArgs carries one deploy through the queue
type DeployJobArgs struct {
	DeploymentID int64  `json:"deployment_id"`
	ProjectID    string `json:"project_id"`
	Target       string `json:"target"`
	Branch       string `json:"branch,omitempty"`
}

// Kind returns the job kind for River
func (DeployJobArgs) Kind() string {
	return "project_deploy"
}

// DeployWorker executes deploy jobs
type DeployWorker struct {
	river.WorkerDefaults[DeployJobArgs]
	pool     *pgxpool.Pool
	projects *projects.Service
	deploys  *deploy.Service
	config   *QueueConfig
}

// Timeout bounds a single deploy attempt
func (w *DeployWorker) Timeout(*river.Job[DeployJobArgs]) time.Duration {
	return w.config.JobTimeout
}

// Work pushes the project to its target and records the outcome
func (w *DeployWorker) Work(ctx context.Context, job *river.Job[DeployJobArgs]) error {
	args := job.Args
	log.Info().
		Int64("deployment_id", args.DeploymentID).
		Str("project_id", args.ProjectID).
		Str("target", args.Target).
		Msg("Starting deploy")

	if err := w.setStatus(ctx, args.DeploymentID, StatusRunning, nil, nil); err != nil {
		return err
	}

	project, err := w.projects.Get(ctx, args.ProjectID)
	if errors.Is(err, projects.ErrNotFound) {
		// Project deleted after enqueue; nothing to retry
		reason := "project no longer exists"
		_ = w.setStatus(ctx, args.DeploymentID, StatusFailed, nil, &reason)
		return river.JobCancel(err)
	}
	if err != nil {
		return fmt.Errorf("failed to load project for deploy: %w", err)
	}

	url, err := w.deploys.Execute(ctx, project, models.DeployTarget(args.Target), args.Branch)
	var secrets *deploy.SecretsError
	if errors.As(err, &secrets) {
		// Files changed between enqueue and execution and now carry a
		// secret; retrying cannot help.
		reason := secrets.Error()
		_ = w.setStatus(ctx, args.DeploymentID, StatusFailed, nil, &reason)
		return river.JobCancel(err)
	}
	if err != nil {
		reason := err.Error()
		_ = w.setStatus(ctx, args.DeploymentID, StatusFailed, nil, &reason)
		return err
	}

	if err := w.setStatus(ctx, args.DeploymentID, StatusSucceeded, &url, nil); err != nil {
		return err
	}
	if err := w.projects.SetDeploymentURL(ctx, args.ProjectID, url); err != nil {
		return err
	}

	log.Info().
		Int64("deployment_id", args.DeploymentID).
		Str("url", url).
		Msg("Deploy succeeded")
	return nil
}

func (w *DeployWorker) setStatus(ctx context.Context, deploymentID int64, status string, url, failReason *string) error {
	var finishedAt *time.Time
	if status == StatusSucceeded || status == StatusFailed {
		now := time.Now()
		finishedAt = &now
	}
	_, err := w.pool.Exec(ctx, `
		UPDATE deployments SET status = $1, url = $2, fail_reason = $3, finished_at = $4 WHERE id = $5
	`, status, url, failReason, finishedAt, deploymentID)
	if err != nil {
		return fmt.Errorf("failed to update deployment %d: %w", deploymentID, err)
	}
	return nil
}

// JobQueue manages the River deploy queue
type JobQueue struct {
	client   *river.Client[pgx.Tx]
	pool     *pgxpool.Pool
	projects *projects.Service
	deploys  *deploy.Service
	config   *QueueConfig
}

// NewJobQueue creates the queue and registers its workers
func NewJobQueue(pool *pgxpool.Pool, projectSvc *projects.Service, deploySvc *deploy.Service) (*JobQueue, error) {
	config := GetQueueConfig()

	workers := river.NewWorkers()
	river.AddWorker(workers, &DeployWorker{
		pool:     pool,
		projects: projectSvc,
		deploys:  deploySvc,
		config:   config,
	})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client:   client,
		pool:     pool,
		projects: projectSvc,
		deploys:  deploySvc,
		config:   config,
	}, nil
}

// Start starts the queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop drains and stops the queue workers
func (jq *JobQueue) Stop(ctx context.Context) error {
	return jq.client.Stop(ctx)
}

// Enqueue validates the deploy, records a pending deployment, and queues
// the job. The secret-scan preflight runs here so the caller gets an
// immediate rejection instead of a deployment that fails minutes later.
func (jq *JobQueue) Enqueue(ctx context.Context, req models.DeployRequest) (*models.Deployment, error) {
	project, err := jq.projects.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := jq.deploys.Preflight(project); err != nil {
		return nil, err
	}

	deployment := &models.Deployment{
		ProjectID: req.ProjectID,
		Target:    string(req.Target),
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
	err = jq.pool.QueryRow(ctx, `
		INSERT INTO deployments (project_id, target, status, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, deployment.ProjectID, deployment.Target, deployment.Status, deployment.CreatedAt).Scan(&deployment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to record deployment: %w", err)
	}

	_, err = jq.client.Insert(ctx, DeployJobArgs{
		DeploymentID: deployment.ID,
		ProjectID:    req.ProjectID,
		Target:       string(req.Target),
		Branch:       req.Branch,
	}, &river.InsertOpts{MaxAttempts: jq.config.MaxRetries})
	if err != nil {
		return nil, fmt.Errorf("failed to queue deploy job: %w", err)
	}

	return deployment, nil
}
