package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/devora/internal/api/auth"
	"github.com/devora/internal/marketplace"
)

func (s *Server) listTemplates(c echo.Context) error {
	all, err := s.templates.List(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list marketplace templates")
		return jsonError(c, http.StatusInternalServerError, "failed to list templates")
	}

	filter := marketplace.ListFilter{
		Category: marketplace.TemplateCategory(c.QueryParam("category")),
		Search:   c.QueryParam("search"),
		Sort:     marketplace.SortOrder(c.QueryParam("sort")),
		// Only published templates are visible to browsers
		Status: marketplace.StatusPublished,
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil {
		filter.Offset = offset
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		filter.Limit = limit
	}

	return c.JSON(http.StatusOK, marketplace.Filter(all, filter))
}

func (s *Server) getTemplate(c echo.Context) error {
	id := c.Param("id")
	all, err := s.templates.List(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list marketplace templates")
		return jsonError(c, http.StatusInternalServerError, "failed to load template")
	}

	for _, t := range all {
		if t.ID == id && t.Status == marketplace.StatusPublished {
			return c.JSON(http.StatusOK, t)
		}
	}
	return jsonError(c, http.StatusNotFound, "template not found")
}

func (s *Server) downloadTemplate(c echo.Context) error {
	id := c.Param("id")
	all, err := s.templates.List(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list marketplace templates")
		return jsonError(c, http.StatusInternalServerError, "failed to load template")
	}

	for _, t := range all {
		if t.ID != id || t.Status != marketplace.StatusPublished {
			continue
		}
		if err := s.templates.RecordDownload(c.Request().Context(), id); err != nil {
			log.Error().Err(err).Str("template_id", id).Msg("Failed to record template download")
			return jsonError(c, http.StatusInternalServerError, "failed to record download")
		}
		if claims, ok := auth.ClaimsFromContext(c); ok {
			log.Info().Str("template_id", id).Int64("user_id", claims.UserID).Msg("Template downloaded")
		}
		return c.JSON(http.StatusOK, t)
	}
	return jsonError(c, http.StatusNotFound, "template not found")
}
