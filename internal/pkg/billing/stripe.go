package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/fxpiphub/signalhub/internal/pkg/env"
)

// ErrInvalidSignature marks a webhook request whose Stripe signature did not
// verify. Requests failing this way are rejected before the event log sees
// them.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ProviderAPI is the slice of the Stripe API the pipeline depends on.
type ProviderAPI interface {
	GetSubscriptionPlan(ctx context.Context, subscriptionID string) (*PlanInfo, error)
}

// PlanInfo carries the canonical recurring price of a subscription.
// UnitAmount is in the smallest currency unit and excludes discounts and tax.
type PlanInfo struct {
	Interval      string
	IntervalCount int64
	UnitAmount    int64
}

// StripeAdapter wraps the Stripe SDK behind the two operations the pipeline
// needs: signature verification over raw request bytes and subscription/price
// lookups.
type StripeAdapter struct {
	webhookSecret string
	sc            *client.API
}

func NewStripeAdapter(secretKey, webhookSecret string) *StripeAdapter {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeAdapter{
		webhookSecret: strings.TrimSpace(webhookSecret),
		sc:            sc,
	}
}

func NewStripeAdapterFromEnv() *StripeAdapter {
	return NewStripeAdapter(
		env.GetEnv("STRIPE_SECRET_KEY", ""),
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	)
}

// VerifyAndParse checks the Stripe-Signature header against the exact raw
// request bytes and decodes the event. The caller must pass the unmodified
// body; any body-parsing middleware running first invalidates the signature.
func (a *StripeAdapter) VerifyAndParse(rawBody []byte, signatureHeader string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return ParseEvent(&ev, rawBody)
}

// GetSubscriptionPlan resolves the subscription's recurring price. The unit
// amount here is the canonical price, preferred over checkout session totals
// which may include proration, tax or coupons.
func (a *StripeAdapter) GetSubscriptionPlan(ctx context.Context, subscriptionID string) (*PlanInfo, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("items.data.price")

	sub, err := a.sc.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe subscription lookup %s: %w", id, err)
	}
	if sub.Items == nil {
		return nil, fmt.Errorf("subscription %s has no items", id)
	}
	for _, item := range sub.Items.Data {
		if item == nil || item.Price == nil || item.Price.Recurring == nil {
			continue
		}
		return &PlanInfo{
			Interval:      string(item.Price.Recurring.Interval),
			IntervalCount: item.Price.Recurring.IntervalCount,
			UnitAmount:    item.Price.UnitAmount,
		}, nil
	}
	return nil, fmt.Errorf("subscription %s has no recurring price", id)
}
