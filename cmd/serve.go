package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/devora/internal/ai"
	"github.com/devora/internal/api"
	"github.com/devora/internal/api/auth"
	"github.com/devora/internal/billing"
	"github.com/devora/internal/config"
	"github.com/devora/internal/database"
	"github.com/devora/internal/deploy"
	"github.com/devora/internal/jobqueue"
	"github.com/devora/internal/logging"
	"github.com/devora/internal/marketplace"
	"github.com/devora/internal/projects"
	"github.com/devora/internal/retry"
	"github.com/devora/pkg/models"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the Devora API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	logging.Setup(cfg.Server.LogLevel)

	db, err := database.NewDB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	pool, err := database.NewPool(ctx)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	connector, err := ai.NewConnector(ctx, ai.ConnectorOptions{
		Provider: ai.Provider(cfg.AI.Provider),
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
		ModelConfig: ai.ModelConfig{
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create AI connector: %w", err)
	}
	generator := ai.NewServiceWithRetry(connector, retry.GenerationConfig())

	scanner, err := deploy.NewScanner()
	if err != nil {
		return fmt.Errorf("failed to create secret scanner: %w", err)
	}

	providers := map[models.DeployTarget]deploy.Provider{}
	if cfg.Deploy.Hosting.Endpoint != "" {
		providers[models.DeployTargetHTTP] = deploy.NewHTTPProvider(cfg.Deploy.Hosting.Endpoint, cfg.Deploy.Hosting.Token)
	}
	if cfg.Deploy.GitLab.Token != "" {
		exporter, err := deploy.NewGitLabExporter(deploy.GitLabConfig{
			URL:       cfg.Deploy.GitLab.URL,
			Token:     cfg.Deploy.GitLab.Token,
			Namespace: cfg.Deploy.GitLab.Namespace,
		})
		if err != nil {
			return fmt.Errorf("failed to create GitLab exporter: %w", err)
		}
		providers[models.DeployTargetGitLab] = exporter
	}

	projectSvc := projects.NewService(db)
	deploySvc := deploy.NewService(scanner, providers)

	queue, err := jobqueue.NewJobQueue(pool, projectSvc, deploySvc)
	if err != nil {
		return fmt.Errorf("failed to create job queue: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer func() {
		if err := queue.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to stop job queue cleanly")
		}
	}()

	billingSvc := billing.NewService(db)
	webhooks := billing.NewWebhookHandler(billingSvc, cfg.Billing.WebhookSecret)

	server := api.NewServer(api.ServerConfig{
		Port:      cfg.Server.Port,
		Projects:  projectSvc,
		Generator: generator,
		Deployer:  queue,
		Templates: marketplace.NewStore(db),
		Tiers:     billingSvc,
		Tokens:    auth.NewTokenService(db, cfg.Auth.JWTSecret),
		Billing:   webhooks,
	})

	return server.Start()
}
