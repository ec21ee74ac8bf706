package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/devora/pkg/models"
)

// generationTimeout bounds one LLM round trip including retries
const generationTimeout = 5 * time.Minute

func (s *Server) generate(c echo.Context) error {
	if !s.genLimiter.Allow() {
		return jsonError(c, http.StatusTooManyRequests, "generation rate limit exceeded, try again shortly")
	}

	var req models.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return jsonError(c, http.StatusBadRequest, "prompt is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), generationTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.generator.Generate(ctx, req, nil)
	if errors.Is(err, context.DeadlineExceeded) {
		return jsonError(c, http.StatusGatewayTimeout, "generation timed out")
	}
	if err != nil {
		log.Error().Err(err).Str("project_id", req.ProjectID).Msg("Generation failed")
		return jsonError(c, http.StatusBadGateway, "generation failed")
	}

	log.Info().
		Str("project_id", req.ProjectID).
		Int("changes", len(resp.Changes)).
		Dur("duration", time.Since(start)).
		Msg("Generation completed")

	return c.JSON(http.StatusOK, resp)
}
