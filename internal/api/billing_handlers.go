package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/devora/internal/api/auth"
	"github.com/devora/internal/billing"
)

type subscriptionResponse struct {
	Tier   billing.PlanTier   `json:"tier"`
	Limits billing.PlanLimits `json:"limits"`
}

func (s *Server) getSubscription(c echo.Context) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return jsonError(c, http.StatusUnauthorized, "authentication required")
	}

	tier, err := s.tiers.ActiveTier(c.Request().Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to resolve subscription tier")
		return jsonError(c, http.StatusInternalServerError, "failed to load subscription")
	}

	return c.JSON(http.StatusOK, subscriptionResponse{
		Tier:   tier,
		Limits: billing.LimitsFor(tier),
	})
}
