package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/fxpiphub/signalhub/app/models"
	"github.com/fxpiphub/signalhub/internal/pkg/billing"
)

type stubSignalsRepo struct {
	billing.Repository
}

func (stubSignalsRepo) GetSubscriberByEmail(email string) (*models.Subscriber, error) {
	return nil, gorm.ErrRecordNotFound
}

func newSignalsTestApp() *fiber.App {
	InitializeSignalsController(stubSignalsRepo{})
	app := fiber.New()
	app.Get("/api/v1/signals/subscription", HandleSubscriptionStatus)
	return app
}

func TestHandleSubscriptionStatus_RejectsMissingEmail(t *testing.T) {
	app := newSignalsTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/signals/subscription", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleSubscriptionStatus_RejectsMalformedEmail(t *testing.T) {
	app := newSignalsTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/signals/subscription?email=not-an-email", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleSubscriptionStatus_UnknownSubscriber(t *testing.T) {
	app := newSignalsTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/signals/subscription?email=ghost%40example.com", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
