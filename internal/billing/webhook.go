package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WebhookHandler processes payment provider webhook events
type WebhookHandler struct {
	service       *Service
	webhookSecret string
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(service *Service, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		service:       service,
		webhookSecret: webhookSecret,
	}
}

// WebhookEvent is the provider's event envelope
type WebhookEvent struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

type subscriptionPayload struct {
	SubscriptionID string   `json:"subscription_id"`
	UserID         int64    `json:"user_id"`
	Tier           PlanTier `json:"tier"`
	PeriodEnd      *int64   `json:"period_end,omitempty"`
}

// Handle verifies and processes one webhook delivery. Signature failures
// are rejected; processing failures return 200 so the provider does not
// retry an event we have already logged.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	signature := c.Request().Header.Get("X-Devora-Signature")
	if !h.verifySignature(body, signature) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid webhook signature",
		})
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid JSON payload",
		})
	}

	if err := h.processEvent(c, &event); err != nil {
		log.Error().Err(err).Str("event", event.Event).Msg("Failed to process billing event")
		return c.JSON(http.StatusOK, map[string]string{
			"status": "error logged",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "processed",
	})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}

func (h *WebhookHandler) processEvent(c echo.Context, event *WebhookEvent) error {
	switch event.Event {
	case "subscription.activated", "subscription.charged":
		return h.applySubscription(c, event, SubscriptionActive)
	case "subscription.payment_failed":
		return h.applySubscription(c, event, SubscriptionPastDue)
	case "subscription.cancelled":
		return h.applySubscription(c, event, SubscriptionCancelled)
	case "subscription.expired":
		return h.applySubscription(c, event, SubscriptionExpired)
	default:
		// Unknown events are acknowledged and ignored
		log.Debug().Str("event", event.Event).Msg("Ignoring unhandled billing event")
		return nil
	}
}

func (h *WebhookHandler) applySubscription(c echo.Context, event *WebhookEvent, status SubscriptionStatus) error {
	var payload subscriptionPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode subscription payload: %w", err)
	}
	if payload.SubscriptionID == "" {
		return fmt.Errorf("subscription payload missing subscription_id")
	}

	sub := &Subscription{
		UserID:        payload.UserID,
		ProviderSubID: payload.SubscriptionID,
		Tier:          payload.Tier,
		Status:        status,
	}
	if payload.PeriodEnd != nil {
		end := time.Unix(*payload.PeriodEnd, 0)
		sub.CurrentPeriodEnd = &end
	}

	return h.service.Upsert(c.Request().Context(), sub)
}
