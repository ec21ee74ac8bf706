package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/devora/internal/deploy"
	"github.com/devora/internal/projects"
	"github.com/devora/pkg/models"
)

func (s *Server) deploy(c echo.Context) error {
	var req models.DeployRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ProjectID == "" {
		return jsonError(c, http.StatusBadRequest, "project_id is required")
	}
	if req.Target == "" {
		req.Target = models.DeployTargetHTTP
	}
	if req.Target != models.DeployTargetHTTP && req.Target != models.DeployTargetGitLab {
		return jsonError(c, http.StatusBadRequest, "unknown deploy target: "+string(req.Target))
	}

	deployment, err := s.deployer.Enqueue(c.Request().Context(), req)
	var secrets *deploy.SecretsError
	switch {
	case errors.Is(err, projects.ErrNotFound):
		return jsonError(c, http.StatusNotFound, "project not found")
	case errors.As(err, &secrets):
		return jsonError(c, http.StatusUnprocessableEntity, secrets.Error())
	case err != nil:
		log.Error().Err(err).Str("project_id", req.ProjectID).Msg("Failed to enqueue deploy")
		return jsonError(c, http.StatusInternalServerError, "failed to start deploy")
	}

	return c.JSON(http.StatusAccepted, deployment)
}
