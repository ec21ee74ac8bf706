package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devora/pkg/models"
)

func TestIssueAndValidateToken(t *testing.T) {
	ts := NewTokenService(nil, "test-secret")
	user := &models.User{ID: 7, Email: "dev@example.com"}

	signed, expiresAt, err := ts.IssueToken(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := ts.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "dev@example.com", claims.Email)
	assert.Equal(t, "devora", claims.Issuer)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	signer := NewTokenService(nil, "secret-a")
	verifier := NewTokenService(nil, "secret-b")

	signed, _, err := signer.IssueToken(&models.User{ID: 1, Email: "x@example.com"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	ts := NewTokenService(nil, "test-secret")
	ts.TokenDuration = -time.Minute

	signed, _, err := ts.IssueToken(&models.User{ID: 1, Email: "x@example.com"})
	require.NoError(t, err)

	_, err = ts.ValidateToken(signed)
	assert.Error(t, err)
}

func TestRequireAuthMiddleware(t *testing.T) {
	ts := NewTokenService(nil, "test-secret")
	e := echo.New()
	handler := RequireAuth(ts)(func(c echo.Context) error {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		return c.String(http.StatusOK, claims.Email)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())

		err := handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("ValidToken", func(t *testing.T) {
		signed, _, err := ts.IssueToken(&models.User{ID: 2, Email: "ok@example.com"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler(c))
		assert.Equal(t, "ok@example.com", rec.Body.String())
	})
}
