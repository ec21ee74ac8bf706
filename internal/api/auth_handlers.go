package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/devora/internal/api/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
}

func (s *Server) register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return jsonError(c, http.StatusBadRequest, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return jsonError(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	user, err := s.tokens.CreateUser(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to create user")
		return jsonError(c, http.StatusConflict, "could not create account")
	}

	token, expiresAt, err := s.tokens.IssueToken(user)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		return jsonError(c, http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusCreated, tokenResponse{Token: token, ExpiresAt: expiresAt, Email: user.Email})
}

func (s *Server) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.tokens.Authenticate(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return jsonError(c, http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		log.Error().Err(err).Msg("Login failed")
		return jsonError(c, http.StatusInternalServerError, "login failed")
	}

	token, expiresAt, err := s.tokens.IssueToken(user)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		return jsonError(c, http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt, Email: user.Email})
}
