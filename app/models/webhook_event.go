package models

import "time"

// WebhookEvent stores every inbound Stripe webhook delivery with the
// metadata needed for idempotent reprocessing and audit.
type WebhookEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	EventType       string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	ProviderEventID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_provider_event" json:"provider_event_id"`
	PayloadJSON     string    `gorm:"type:longtext;not null" json:"payload_json"`
	Processed       bool      `gorm:"default:false;index" json:"processed"`
	ErrorMessage    string    `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
