package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/fxpiphub/signalhub/internal/pkg/billing"
	"github.com/fxpiphub/signalhub/internal/pkg/metrics/counter"
)

var adminEventsRepo billing.Repository

// InitializeAdminEventsController wires the billing repository used by the
// webhook audit endpoint.
func InitializeAdminEventsController(repo billing.Repository) {
	adminEventsRepo = repo
}

// HandleAdminWebhookEvents lists recent webhook deliveries with their
// processing outcome. Read-only audit view; events are never deleted.
func HandleAdminWebhookEvents(c *fiber.Ctx) error {
	events, err := adminEventsRepo.ListWebhookEvents(c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		log.Printf("[admin] webhook event listing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(fiber.Map{"events": events})
}

// HandleAdminWebhookStats reports per-event-type received/failed counts from
// the Redis counters.
func HandleAdminWebhookStats(c *fiber.Ctx) error {
	received, failed, err := counter.WebhookStats()
	if err != nil {
		log.Printf("[admin] webhook stats lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(fiber.Map{"received": received, "failed": failed})
}
