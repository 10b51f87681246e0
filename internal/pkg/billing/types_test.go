package billing

import (
	"encoding/json"
	"testing"

	stripe "github.com/stripe/stripe-go/v78"
)

func stripeEvent(t *testing.T, id, eventType, object string) *stripe.Event {
	t.Helper()
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(object)},
	}
}

func TestParseEvent_CheckoutSession(t *testing.T) {
	object := `{
		"id": "cs_123",
		"customer": "cus_123",
		"subscription": "sub_123",
		"customer_details": { "email": "Trader@Example.com" },
		"amount_total": 2999
	}`
	raw := []byte(`{"id":"evt_1"}`)

	ev, err := ParseEvent(stripeEvent(t, "evt_1", "checkout.session.completed", object), raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.ID != "evt_1" || ev.Kind != EventCheckoutCompleted {
		t.Fatalf("unexpected envelope: id=%q kind=%q", ev.ID, ev.Kind)
	}
	if ev.Checkout == nil {
		t.Fatalf("expected checkout payload")
	}
	if ev.Checkout.Subscription != "sub_123" || ev.Checkout.AmountTotal != 2999 {
		t.Fatalf("unexpected session: %+v", ev.Checkout)
	}
	if got := ev.Checkout.Email(); got != "trader@example.com" {
		t.Fatalf("Email() = %q, want lowercased details email", got)
	}
	if string(ev.RawPayload) != string(raw) {
		t.Fatalf("expected verbatim raw payload to be retained")
	}
}

func TestParseEvent_CheckoutEmailPrefersTopLevelField(t *testing.T) {
	object := `{
		"id": "cs_123",
		"customer_email": "primary@example.com",
		"customer_details": { "email": "secondary@example.com" }
	}`
	ev, err := ParseEvent(stripeEvent(t, "evt_1", "checkout.session.completed", object), nil)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if got := ev.Checkout.Email(); got != "primary@example.com" {
		t.Fatalf("Email() = %q, want top-level customer_email", got)
	}
}

func TestParseEvent_Subscription(t *testing.T) {
	object := `{
		"id": "sub_123",
		"customer": "cus_123",
		"status": "active",
		"cancel_at_period_end": true,
		"current_period_start": 1700000000,
		"current_period_end": 1702592000,
		"items": {
			"data": [
				{ "price": { "id": "price_m", "unit_amount": 2999, "recurring": { "interval": "month", "interval_count": 1 } } }
			]
		}
	}`
	ev, err := ParseEvent(stripeEvent(t, "evt_2", "customer.subscription.updated", object), nil)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	sub := ev.Subscription
	if sub == nil {
		t.Fatalf("expected subscription payload")
	}
	if sub.Status != "active" || !sub.CancelAtPeriodEnd {
		t.Fatalf("unexpected subscription state: %+v", sub)
	}
	if sub.CurrentPeriodEnd != 1702592000 {
		t.Fatalf("unexpected period end: %d", sub.CurrentPeriodEnd)
	}
	if len(sub.Items.Data) != 1 || sub.Items.Data[0].Price.UnitAmount != 2999 {
		t.Fatalf("unexpected items: %+v", sub.Items)
	}
	if sub.Items.Data[0].Price.Recurring.Interval != "month" {
		t.Fatalf("unexpected recurring interval: %+v", sub.Items.Data[0].Price)
	}
}

func TestParseEvent_Invoice(t *testing.T) {
	object := `{
		"id": "in_123",
		"customer": "cus_123",
		"subscription": "sub_123",
		"amount_paid": 2999
	}`
	ev, err := ParseEvent(stripeEvent(t, "evt_3", "invoice.payment_succeeded", object), nil)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Invoice == nil || ev.Invoice.Subscription != "sub_123" || ev.Invoice.AmountPaid != 2999 {
		t.Fatalf("unexpected invoice: %+v", ev.Invoice)
	}
}

func TestParseEvent_UnknownTypeCarriesNoPayload(t *testing.T) {
	ev, err := ParseEvent(stripeEvent(t, "evt_4", "customer.tax_id.created", `{"id":"txi_1"}`), nil)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Checkout != nil || ev.Subscription != nil || ev.Invoice != nil {
		t.Fatalf("expected no typed payload for unknown kind")
	}
	if ev.Kind != EventKind("customer.tax_id.created") {
		t.Fatalf("unexpected kind %q", ev.Kind)
	}
}

func TestParseEvent_MalformedPayload(t *testing.T) {
	if _, err := ParseEvent(stripeEvent(t, "evt_5", "checkout.session.completed", `{"id"`), nil); err == nil {
		t.Fatalf("expected decode error for malformed payload")
	}
}
