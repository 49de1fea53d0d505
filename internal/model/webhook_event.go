package model

import "time"

// WebhookEventStatus represents the processing state of an inbound webhook.
type WebhookEventStatus string

const (
	WebhookEventProcessing         WebhookEventStatus = "PROCESSING"
	WebhookEventCompleted          WebhookEventStatus = "COMPLETED"
	WebhookEventVerificationFailed WebhookEventStatus = "VERIFICATION_FAILED"
	WebhookEventNoConfig           WebhookEventStatus = "NO_CONFIG"
)

// WebhookEvent is the idempotency ledger: one row per unique
// (provider, provider_event_id) delivery. The unique index is the sole guard
// against double-processing a provider event, so it must exist at the storage
// layer. Rows are global rather than tenant-scoped because provider identity
// is known before the owning restaurant can be resolved.
type WebhookEvent struct {
	ID              uint               `json:"id" gorm:"primaryKey"`
	Provider        ProviderName       `json:"provider" gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string             `json:"provider_event_id" gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string             `json:"event_type" gorm:"type:varchar(100);index"`
	PayloadJSON     string             `json:"payload_json" gorm:"type:longtext;not null"`
	Status          WebhookEventStatus `json:"status" gorm:"type:varchar(30);not null;default:'PROCESSING';index"`
	ProcessingError string             `json:"processing_error,omitempty" gorm:"type:text"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}
