// Package billing tracks subscriptions and processes payment provider
// webhooks.
package billing

import (
	"time"
)

// PlanTier identifies a subscription tier
type PlanTier string

const (
	TierFree PlanTier = "free"
	TierPro  PlanTier = "pro"
	TierTeam PlanTier = "team"
)

// SubscriptionStatus tracks a subscription through its lifecycle
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription is one user's paid plan
type Subscription struct {
	ID               int64              `json:"id" db:"id"`
	UserID           int64              `json:"user_id" db:"user_id"`
	ProviderSubID    string             `json:"provider_sub_id" db:"provider_sub_id"`
	Tier             PlanTier           `json:"tier" db:"tier"`
	Status           SubscriptionStatus `json:"status" db:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty" db:"current_period_end"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

// PlanLimits are the per-tier usage limits
type PlanLimits struct {
	MaxProjects        int  `json:"max_projects"`
	GenerationsPerDay  int  `json:"generations_per_day"`
	DeploysPerDay      int  `json:"deploys_per_day"`
	MarketplaceSelling bool `json:"marketplace_selling"`
}

// LimitsFor returns the usage limits for a tier. Unknown tiers fall back
// to free limits.
func LimitsFor(tier PlanTier) PlanLimits {
	switch tier {
	case TierPro:
		return PlanLimits{MaxProjects: 50, GenerationsPerDay: 200, DeploysPerDay: 50, MarketplaceSelling: true}
	case TierTeam:
		return PlanLimits{MaxProjects: 500, GenerationsPerDay: 1000, DeploysPerDay: 200, MarketplaceSelling: true}
	default:
		return PlanLimits{MaxProjects: 3, GenerationsPerDay: 20, DeploysPerDay: 5, MarketplaceSelling: false}
	}
}
