package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tablepay/internal/model"
)

// WebhookEventRepository defines idempotency ledger persistence operations.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts a ledger row keyed by (provider,
	// provider_event_id). On a true duplicate the insert is a no-op and the
	// previously stored row is returned with created=false; a unique-key
	// collision means someone else is handling the event, never an error.
	CreateIfNotExists(ctx context.Context, event *model.WebhookEvent) (created bool, stored *model.WebhookEvent, err error)
	UpdateStatus(ctx context.Context, id uint, status model.WebhookEventStatus, processingError string) error
	FindByProviderEvent(ctx context.Context, provider model.ProviderName, providerEventID string) (*model.WebhookEvent, error)
}

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// CreateIfNotExists inserts the ledger row unless the unique key already exists.
func (r *webhookEventRepository) CreateIfNotExists(ctx context.Context, event *model.WebhookEvent) (bool, *model.WebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored model.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// UpdateStatus updates the processing status of a ledger row.
func (r *webhookEventRepository) UpdateStatus(ctx context.Context, id uint, status model.WebhookEventStatus, processingError string) error {
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           status,
			"processing_error": processingError,
		}).Error
}

// FindByProviderEvent finds a ledger row by its unique key.
func (r *webhookEventRepository) FindByProviderEvent(ctx context.Context, provider model.ProviderName, providerEventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
