package billing

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fxpiphub/signalhub/app/models"
)

// Repository provides the DB operations used by the reconciliation pipeline.
type Repository interface {
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	ListWebhookEvents(limit, offset int) ([]models.WebhookEvent, error)

	GetSubscriberByEmail(email string) (*models.Subscriber, error)
	GetSubscriberByCustomerID(customerID string) (*models.Subscriber, error)
	GetSubscriberBySubscriptionID(subscriptionID string) (*models.Subscriber, error)
	CreateSubscriber(sub *models.Subscriber) error
	SaveSubscriber(sub *models.Subscriber) error

	UpsertSubscription(sub *models.SignalSubscription) error
	UpdateSubscriptionStatus(stripeSubscriptionID, status string) error
	GetSubscriptionBySubscriptionID(stripeSubscriptionID string) (*models.SignalSubscription, error)
	GetLatestSubscriptionBySubscriber(subscriberID uint) (*models.SignalSubscription, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider_event_id = ?", event.ProviderEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	updates := map[string]interface{}{
		"processed":     processingError == "",
		"error_message": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListWebhookEvents(limit, offset int) ([]models.WebhookEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []models.WebhookEvent
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, err
}

func (r *gormRepository) GetSubscriberByEmail(email string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriberByCustomerID(customerID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriberBySubscriptionID(subscriptionID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// The subscriber may already point at a newer subscription id; fall back
	// to the subscription record's owner.
	var record models.SignalSubscription
	if err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&record).Error; err != nil {
		return nil, err
	}
	if err := r.db.Where("id = ?", record.SubscriberID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscriber(sub *models.Subscriber) error {
	sub.Email = strings.ToLower(strings.TrimSpace(sub.Email))
	if err := sub.Validate(); err != nil {
		return err
	}
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscriber(sub *models.Subscriber) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) UpsertSubscription(sub *models.SignalSubscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscriber_id",
			"status",
			"plan_type",
			"amount_paid",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).First(sub).Error
}

func (r *gormRepository) UpdateSubscriptionStatus(stripeSubscriptionID, status string) error {
	return r.db.Model(&models.SignalSubscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Update("status", status).Error
}

func (r *gormRepository) GetSubscriptionBySubscriptionID(stripeSubscriptionID string) (*models.SignalSubscription, error) {
	var record models.SignalSubscription
	err := r.db.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormRepository) GetLatestSubscriptionBySubscriber(subscriberID uint) (*models.SignalSubscription, error) {
	var record models.SignalSubscription
	err := r.db.Where("subscriber_id = ?", subscriberID).Order("created_at DESC").First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
