package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fxpiphub/signalhub/internal/pkg/billing"
	"github.com/fxpiphub/signalhub/internal/pkg/metrics/counter"
)

// WebhookVerifier verifies the provider signature over the raw request bytes
// and decodes the event.
type WebhookVerifier interface {
	VerifyAndParse(rawBody []byte, signatureHeader string) (*billing.Event, error)
}

// WebhookProcessor runs one verified event through the reconciliation
// pipeline.
type WebhookProcessor interface {
	ProcessEvent(ctx context.Context, ev *billing.Event) error
}

var (
	webhookVerifier  WebhookVerifier
	webhookProcessor WebhookProcessor
)

// InitializeWebhookController wires the Stripe adapter and the pipeline
// service. Called once during router installation.
func InitializeWebhookController(verifier WebhookVerifier, processor WebhookProcessor) {
	webhookVerifier = verifier
	webhookProcessor = processor
}

// HandleStripeWebhook receives Stripe webhook deliveries. The route carries
// no body-parsing middleware: verification runs over the exact raw bytes.
// Any non-2xx response tells Stripe to redeliver on its own backoff schedule.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	event, err := webhookVerifier.VerifyAndParse(rawBody, signature)
	if err != nil {
		// Rejected before the event log sees it; an unverified payload is
		// not an event.
		log.Printf("[webhook] signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	if err := counter.AddWebhookReceived(string(event.Kind)); err != nil {
		log.Printf("[webhook] counter update failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := webhookProcessor.ProcessEvent(ctx, event); err != nil {
		log.Printf("[webhook] event %s (%s) failed: %v", event.ID, event.Kind, err)
		if cerr := counter.AddWebhookFailed(string(event.Kind)); cerr != nil {
			log.Printf("[webhook] counter update failed: %v", cerr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
