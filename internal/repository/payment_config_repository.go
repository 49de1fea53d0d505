package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tablepay/internal/model"
)

// PaymentConfigRepository defines payment config persistence operations.
// Configs are only ever written with the owning restaurant id in the
// predicate; there is no cross-tenant lookup.
type PaymentConfigRepository interface {
	// Upsert inserts the config or, on the (restaurant_id, provider) unique
	// key, replaces the encrypted blobs and flags in place.
	Upsert(ctx context.Context, config *model.PaymentConfig) error
	FindActive(ctx context.Context, restaurantID uuid.UUID, provider model.ProviderName) (*model.PaymentConfig, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.PaymentConfig, error)
}

type paymentConfigRepository struct {
	db *gorm.DB
}

// NewPaymentConfigRepository creates a new payment config repository.
func NewPaymentConfigRepository(db *gorm.DB) PaymentConfigRepository {
	return &paymentConfigRepository{db: db}
}

// Upsert inserts or replaces a payment config.
func (r *paymentConfigRepository) Upsert(ctx context.Context, config *model.PaymentConfig) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "restaurant_id"},
			{Name: "provider"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"credentials_enc",
			"webhook_secret_enc",
			"active",
			"metadata_json",
			"updated_at",
		}),
	}).Create(config).Error; err != nil {
		return err
	}

	// Ensure ID reflects the stored row after a conflict update.
	return r.db.WithContext(ctx).
		Where("restaurant_id = ? AND provider = ?", config.RestaurantID, config.Provider).
		First(config).Error
}

// FindActive finds the active config for a restaurant and provider.
func (r *paymentConfigRepository) FindActive(ctx context.Context, restaurantID uuid.UUID, provider model.ProviderName) (*model.PaymentConfig, error) {
	var config model.PaymentConfig
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND provider = ? AND active = ?", restaurantID, provider, true).
		First(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

// ListByRestaurant lists all configs for a restaurant, active or not.
func (r *paymentConfigRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.PaymentConfig, error) {
	var configs []model.PaymentConfig
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("provider").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}
