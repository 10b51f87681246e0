package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fxpiphub/signalhub/internal/pkg/billing"
)

var signalsRepo billing.Repository

// InitializeSignalsController wires the billing repository used by the
// dashboard endpoints.
func InitializeSignalsController(repo billing.Repository) {
	signalsRepo = repo
}

// HandleSubscriptionStatus returns the subscriber's latest subscription for
// the member dashboard: status, plan and when paid access runs out.
func HandleSubscriptionStatus(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if err := validator.New().Var(email, "required,email"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "a valid email is required"})
	}

	subscriber, err := signalsRepo.GetSubscriberByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		log.Printf("[signals] subscriber lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	resp := fiber.Map{
		"email":       subscriber.Email,
		"invite_link": subscriber.InviteLink,
	}

	record, err := signalsRepo.GetLatestSubscriptionBySubscriber(subscriber.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[signals] subscription lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
		}
		resp["subscription"] = nil
		return c.JSON(resp)
	}

	resp["subscription"] = fiber.Map{
		"status":               record.Status,
		"plan_type":            record.PlanType,
		"amount_paid":          record.AmountPaid,
		"current_period_end":   record.CurrentPeriodEnd,
		"cancel_at_period_end": record.CancelAtPeriodEnd,
	}
	return c.JSON(resp)
}
