package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Subscriber is one paying signals member. Email is the stable identity that
// joins billing events to the Telegram provisioning and email side effects;
// the Stripe ids are filled in as events arrive. Rows are never deleted,
// cancellation is tracked on the subscription records.
type Subscriber struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Email                string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_subscribers_email" json:"email" validate:"required,email,max=200"`
	StripeCustomerID     string    `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id" validate:"max=191"`
	StripeSubscriptionID string    `gorm:"type:varchar(191);default:'';index" json:"stripe_subscription_id" validate:"max=191"`
	InviteLink           string    `gorm:"type:text" json:"invite_link"`
	WelcomeEmailSent     bool      `gorm:"default:false" json:"welcome_email_sent"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Subscriber) Validate() error {
	v := validator.New()
	return v.Struct(s)
}
