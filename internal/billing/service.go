package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Service persists subscriptions
type Service struct {
	db *sql.DB
}

// NewService creates a billing service
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Upsert stores the provider's latest view of a subscription. Events may
// arrive out of order, so the newest update always wins.
func (s *Service) Upsert(ctx context.Context, sub *Subscription) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, provider_sub_id, tier, status, current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (provider_sub_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at
	`, sub.UserID, sub.ProviderSubID, sub.Tier, sub.Status, sub.CurrentPeriodEnd, now)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription %s: %w", sub.ProviderSubID, err)
	}
	return nil
}

// ActiveTier returns the user's current tier. Users without an active
// subscription are on the free tier.
func (s *Service) ActiveTier(ctx context.Context, userID int64) (PlanTier, error) {
	var tier PlanTier
	err := s.db.QueryRowContext(ctx, `
		SELECT tier FROM subscriptions
		WHERE user_id = $1 AND status = $2
		ORDER BY updated_at DESC LIMIT 1
	`, userID, SubscriptionActive).Scan(&tier)
	if err == sql.ErrNoRows {
		return TierFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up subscription: %w", err)
	}
	return tier, nil
}
