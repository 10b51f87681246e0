package models

import "time"

// Subscription status values mirrored verbatim from Stripe.
const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
)

// SignalSubscription mirrors one Stripe subscription. Status transitions are
// driven solely by provider webhooks; a deleted subscription keeps its row
// with status canceled so the dashboard can still show period bounds.
type SignalSubscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	SubscriberID         uint       `gorm:"not null;index" json:"subscriber_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_signal_subscriptions_subid" json:"stripe_subscription_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	PlanType             string     `gorm:"type:varchar(50);default:''" json:"plan_type"`
	AmountPaid           float64    `gorm:"default:0" json:"amount_paid"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
