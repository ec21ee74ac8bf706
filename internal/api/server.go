// Package api exposes the Devora REST surface: project persistence, AI code
// generation, deploys, the template marketplace, and billing webhooks.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/devora/internal/api/auth"
	"github.com/devora/internal/billing"
	"github.com/devora/internal/marketplace"
	"github.com/devora/pkg/models"
)

// ProjectStore is the persistence surface the handlers need
type ProjectStore interface {
	Create(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error)
	Get(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Save(ctx context.Context, id string, req models.SaveProjectRequest) (*models.Project, error)
	Delete(ctx context.Context, id string) error
}

// Generator produces code changes from a prompt
type Generator interface {
	Generate(ctx context.Context, req models.GenerateRequest, progress func(pct int)) (*models.GenerateResponse, error)
}

// Deployer enqueues a deploy job and returns its pending record
type Deployer interface {
	Enqueue(ctx context.Context, req models.DeployRequest) (*models.Deployment, error)
}

// TemplateStore lists marketplace templates and tracks downloads
type TemplateStore interface {
	List(ctx context.Context) ([]marketplace.Template, error)
	RecordDownload(ctx context.Context, id string) error
}

// TierSource resolves a user's current subscription tier
type TierSource interface {
	ActiveTier(ctx context.Context, userID int64) (billing.PlanTier, error)
}

// Server is the Devora API server
type Server struct {
	echo      *echo.Echo
	port      int
	projects  ProjectStore
	generator Generator
	deployer  Deployer
	templates TemplateStore
	tiers     TierSource
	tokens    *auth.TokenService

	// One token per second with a small burst keeps a single user from
	// monopolising the LLM backend.
	genLimiter *rate.Limiter
}

// ServerConfig carries the dependencies for NewServer
type ServerConfig struct {
	Port      int
	Projects  ProjectStore
	Generator Generator
	Deployer  Deployer
	Templates TemplateStore
	Tiers     TierSource
	Tokens    *auth.TokenService
	Billing   BillingWebhook
}

// BillingWebhook handles provider payment callbacks
type BillingWebhook interface {
	Handle(c echo.Context) error
}

// NewServer creates the API server with all routes registered
func NewServer(cfg ServerConfig) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:       e,
		port:       cfg.Port,
		projects:   cfg.Projects,
		generator:  cfg.Generator,
		deployer:   cfg.Deployer,
		templates:  cfg.Templates,
		tiers:      cfg.Tiers,
		tokens:     cfg.Tokens,
		genLimiter: rate.NewLimiter(rate.Every(1*time.Second), 5),
	}

	s.setupRoutes(cfg.Billing)
	return s
}

func (s *Server) setupRoutes(webhook BillingWebhook) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	v1.POST("/auth/register", s.register)
	v1.POST("/auth/login", s.login)

	v1.GET("/marketplace/templates", s.listTemplates)
	v1.GET("/marketplace/templates/:id", s.getTemplate)

	if webhook != nil {
		v1.POST("/webhooks/billing", webhook.Handle)
	}

	protected := v1.Group("")
	protected.Use(auth.RequireAuth(s.tokens))

	protected.GET("/projects", s.listProjects)
	protected.POST("/projects", s.createProject)
	protected.GET("/projects/:id", s.getProject)
	protected.PUT("/projects/:id", s.saveProject)
	protected.DELETE("/projects/:id", s.deleteProject)

	protected.POST("/marketplace/templates/:id/download", s.downloadTemplate)
	if s.tiers != nil {
		protected.GET("/billing/subscription", s.getSubscription)
	}

	protected.POST("/generate", s.generate)
	protected.POST("/deploy", s.deploy)
}

// Handler exposes the underlying echo handler for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the server until an interrupt arrives, then shuts down
// gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server stopped")
		}
	}()

	log.Info().Int("port", s.port).Msg("API server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
