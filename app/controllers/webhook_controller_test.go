package controllers

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/fxpiphub/signalhub/internal/pkg/billing"
)

type stubVerifier struct {
	event *billing.Event
	err   error

	gotBody      []byte
	gotSignature string
}

func (v *stubVerifier) VerifyAndParse(rawBody []byte, signatureHeader string) (*billing.Event, error) {
	v.gotBody = rawBody
	v.gotSignature = signatureHeader
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

type stubProcessor struct {
	err    error
	events []*billing.Event
}

func (p *stubProcessor) ProcessEvent(ctx context.Context, ev *billing.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

func newWebhookTestApp(verifier *stubVerifier, processor *stubProcessor) *fiber.App {
	InitializeWebhookController(verifier, processor)
	app := fiber.New()
	app.Post("/api/v1/webhooks/stripe", HandleStripeWebhook)
	return app
}

func TestHandleStripeWebhook_OK(t *testing.T) {
	verifier := &stubVerifier{event: &billing.Event{ID: "evt_1", Kind: billing.EventCheckoutCompleted}}
	processor := &stubProcessor{}
	app := newWebhookTestApp(verifier, processor)

	req := httptest.NewRequest("POST", "/api/v1/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"received":true`)

	assert.Equal(t, `{"id":"evt_1"}`, string(verifier.gotBody))
	assert.Equal(t, "t=1,v1=abc", verifier.gotSignature)
	assert.Len(t, processor.events, 1)
	assert.Equal(t, "evt_1", processor.events[0].ID)
}

func TestHandleStripeWebhook_InvalidSignature(t *testing.T) {
	verifier := &stubVerifier{err: billing.ErrInvalidSignature}
	processor := &stubProcessor{}
	app := newWebhookTestApp(verifier, processor)

	req := httptest.NewRequest("POST", "/api/v1/webhooks/stripe", strings.NewReader(`{}`))

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, processor.events, "unverified payloads must not reach the pipeline")
}

func TestHandleStripeWebhook_ProcessingFailureTriggersRedelivery(t *testing.T) {
	verifier := &stubVerifier{event: &billing.Event{ID: "evt_1", Kind: billing.EventPaymentFailed}}
	processor := &stubProcessor{err: errors.New("db down")}
	app := newWebhookTestApp(verifier, processor)

	req := httptest.NewRequest("POST", "/api/v1/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
