package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProviderName identifies an external payment processor.
type ProviderName string

const (
	ProviderStripe ProviderName = "stripe"
	ProviderSquare ProviderName = "square"
)

// Valid reports whether the provider name is a known provider.
func (p ProviderName) Valid() bool {
	return p == ProviderStripe || p == ProviderSquare
}

// PaymentStatus represents the status of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsTerminal reports whether the payment can no longer change, with the single
// exception of COMPLETED -> REFUNDED.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// Payment represents one attempt to collect money for one order through an
// external provider's checkout session.
type Payment struct {
	ID                uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	RestaurantID      uuid.UUID       `json:"restaurant_id" gorm:"type:char(36);not null;index"`
	OrderID           uuid.UUID       `json:"order_id" gorm:"type:char(36);not null;index"`
	Provider          ProviderName    `json:"provider" gorm:"type:varchar(20);not null;index"`
	ProviderPaymentID string          `json:"provider_payment_id" gorm:"size:255;index"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Currency          string          `json:"currency" gorm:"size:3;not null"`
	Status            PaymentStatus   `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	CheckoutURL       string          `json:"checkout_url,omitempty" gorm:"type:text"`
	RefundID          string          `json:"refund_id,omitempty" gorm:"size:255"`
	FailureReason     string          `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relations
	Restaurant Restaurant `json:"-" gorm:"foreignKey:RestaurantID"`
	Order      Order      `json:"-" gorm:"foreignKey:OrderID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
