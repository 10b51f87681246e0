package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
)

// EventKind discriminates the webhook event types the pipeline understands.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventSubscriptionCreated EventKind = "customer.subscription.created"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
	EventPaymentFailed       EventKind = "invoice.payment_failed"
	EventPaymentSucceeded    EventKind = "invoice.payment_succeeded"
)

// Event is one verified webhook delivery: the provider event id, the verbatim
// body for the event log, and exactly one typed payload for known kinds.
// Unrecognized kinds carry no payload and are processed as no-ops.
type Event struct {
	ID         string
	Kind       EventKind
	RawPayload []byte

	Checkout     *CheckoutSession
	Subscription *SubscriptionState
	Invoice      *Invoice
}

// CheckoutSession is the slice of checkout.session.completed the pipeline
// reads. AmountTotal is in the smallest currency unit and may include
// proration/tax/coupons, which is why the canonical unit price is preferred.
type CheckoutSession struct {
	ID              string `json:"id"`
	Customer        string `json:"customer"`
	Subscription    string `json:"subscription"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	AmountTotal int64             `json:"amount_total"`
	Metadata    map[string]string `json:"metadata"`
}

// Email returns the best customer email available on the session.
func (s *CheckoutSession) Email() string {
	if email := strings.TrimSpace(s.CustomerEmail); email != "" {
		return strings.ToLower(email)
	}
	return strings.ToLower(strings.TrimSpace(s.CustomerDetails.Email))
}

// SubscriptionState is the subscription object carried by the
// customer.subscription.* events. Period bounds are Unix seconds; zero means
// the provider omitted the value.
type SubscriptionState struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount int64  `json:"unit_amount"`
				Recurring  struct {
					Interval      string `json:"interval"`
					IntervalCount int64  `json:"interval_count"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// Invoice is the slice of the invoice.payment_* events the pipeline reads.
// An empty Subscription marks a one-time-payment invoice artifact.
type Invoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	CustomerEmail string `json:"customer_email"`
	AmountPaid    int64  `json:"amount_paid"`
}

// ParseEvent decodes the verified Stripe envelope into the tagged Event the
// pipeline consumes. rawBody is the verbatim webhook request body.
func ParseEvent(ev *stripe.Event, rawBody []byte) (*Event, error) {
	out := &Event{
		ID:         strings.TrimSpace(ev.ID),
		Kind:       EventKind(ev.Type),
		RawPayload: append([]byte(nil), rawBody...),
	}

	switch out.Kind {
	case EventCheckoutCompleted:
		var session CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Checkout = &session
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub SubscriptionState
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = &sub
	case EventPaymentFailed, EventPaymentSucceeded:
		var invoice Invoice
		if err := json.Unmarshal(ev.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.Invoice = &invoice
	}

	return out, nil
}
