package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ContextKey represents keys for context values
type ContextKey string

const (
	// UserContextKey carries the authenticated user's claims
	UserContextKey ContextKey = "user"
)

// RequireAuth returns echo middleware that rejects requests without a
// valid Bearer token and stores the verified claims on the context.
func RequireAuth(tokenService *TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims, err := tokenService.ValidateToken(tokenParts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(string(UserContextKey), claims)
			return next(c)
		}
	}
}

// ClaimsFromContext returns the authenticated claims set by RequireAuth
func ClaimsFromContext(c echo.Context) (*JWTClaims, bool) {
	claims, ok := c.Get(string(UserContextKey)).(*JWTClaims)
	return claims, ok
}
