package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentConfig holds a restaurant's encrypted provider credentials. At most
// one row exists per (restaurant, provider); re-saving replaces the encrypted
// blobs in place and rows are only ever deactivated, never deleted.
type PaymentConfig struct {
	ID               uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	RestaurantID     uuid.UUID      `json:"restaurant_id" gorm:"type:char(36);not null;uniqueIndex:ux_payment_configs_restaurant_provider,priority:1"`
	Provider         ProviderName   `json:"provider" gorm:"type:varchar(20);not null;uniqueIndex:ux_payment_configs_restaurant_provider,priority:2"`
	CredentialsEnc   []byte         `json:"-" gorm:"type:blob;not null"` // Never expose in JSON
	WebhookSecretEnc []byte         `json:"-" gorm:"type:blob"`          // Stored separately from credentials
	Active           bool           `json:"active" gorm:"default:true;index"`
	MetadataJSON     string         `json:"metadata_json,omitempty" gorm:"type:text"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Restaurant Restaurant `json:"-" gorm:"foreignKey:RestaurantID"`
}

// BeforeCreate sets UUID before creating the record.
func (pc *PaymentConfig) BeforeCreate(tx *gorm.DB) error {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	return nil
}
