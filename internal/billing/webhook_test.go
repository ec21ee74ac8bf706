package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/billing", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("X-Devora-Signature", signature)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h.Handle(e.NewContext(req, rec)))
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := NewWebhookHandler(nil, testSecret)
	body := `{"event":"subscription.activated","payload":{}}`

	rec := postWebhook(t, h, body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(t, h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	h := NewWebhookHandler(nil, testSecret)
	body := `{not json`

	rec := postWebhook(t, h, body, sign(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookIgnoresUnknownEvent(t *testing.T) {
	h := NewWebhookHandler(nil, testSecret)
	body := `{"event":"invoice.created","payload":{}}`

	rec := postWebhook(t, h, body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "processed", resp["status"])
}

func TestWebhookLogsMalformedSubscriptionEvent(t *testing.T) {
	h := NewWebhookHandler(nil, testSecret)
	// Missing subscription_id: processing fails but the delivery is still
	// acknowledged so the provider does not retry.
	body := `{"event":"subscription.activated","payload":{"user_id":1}}`

	rec := postWebhook(t, h, body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error logged", resp["status"])
}

func TestLimitsFor(t *testing.T) {
	assert.Equal(t, 3, LimitsFor(TierFree).MaxProjects)
	assert.True(t, LimitsFor(TierPro).MarketplaceSelling)
	assert.Equal(t, 1000, LimitsFor(TierTeam).GenerationsPerDay)
	assert.Equal(t, LimitsFor(TierFree), LimitsFor(PlanTier("unknown")))
}
