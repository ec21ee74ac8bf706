package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/devora/internal/projects"
	"github.com/devora/pkg/models"
)

func (s *Server) listProjects(c echo.Context) error {
	list, err := s.projects.List(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list projects")
		return jsonError(c, http.StatusInternalServerError, "failed to list projects")
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) createProject(c echo.Context) error {
	var req models.CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return jsonError(c, http.StatusBadRequest, "project name is required")
	}

	project, err := s.projects.Create(c.Request().Context(), req)
	if err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("Failed to create project")
		return jsonError(c, http.StatusInternalServerError, "failed to create project")
	}
	return c.JSON(http.StatusCreated, project)
}

func (s *Server) getProject(c echo.Context) error {
	id := c.Param("id")
	project, err := s.projects.Get(c.Request().Context(), id)
	if errors.Is(err, projects.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "project not found")
	}
	if err != nil {
		log.Error().Err(err).Str("project_id", id).Msg("Failed to load project")
		return jsonError(c, http.StatusInternalServerError, "failed to load project")
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) saveProject(c echo.Context) error {
	id := c.Param("id")

	var req models.SaveProjectRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}

	project, err := s.projects.Save(c.Request().Context(), id, req)
	var conflict *projects.ConflictError
	switch {
	case errors.Is(err, projects.ErrNotFound):
		return jsonError(c, http.StatusNotFound, "project not found")
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, errorBody{
			Error:         "project was modified by another session",
			RemoteVersion: conflict.RemoteVersion,
		})
	case err != nil:
		log.Error().Err(err).Str("project_id", id).Msg("Failed to save project")
		return jsonError(c, http.StatusInternalServerError, "failed to save project")
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) deleteProject(c echo.Context) error {
	id := c.Param("id")
	err := s.projects.Delete(c.Request().Context(), id)
	if errors.Is(err, projects.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "project not found")
	}
	if err != nil {
		log.Error().Err(err).Str("project_id", id).Msg("Failed to delete project")
		return jsonError(c, http.StatusInternalServerError, "failed to delete project")
	}
	return c.NoContent(http.StatusNoContent)
}
