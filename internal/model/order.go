package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "CREATED"
	OrderStatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusAccepted       OrderStatus = "ACCEPTED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusReady          OrderStatus = "READY"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order represents a customer order. The status field is owned by the payment
// core: every mutation must go through the order state machine.
type Order struct {
	ID            uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	RestaurantID  uuid.UUID       `json:"restaurant_id" gorm:"type:char(36);not null;index"`
	Status        OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'CREATED';index"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(20,2);not null"`
	Currency      string          `json:"currency" gorm:"size:3;not null;default:'USD'"`
	CustomerName  string          `json:"customer_name" gorm:"size:255"`
	CustomerEmail string          `json:"customer_email" gorm:"size:255"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relations
	Restaurant Restaurant `json:"-" gorm:"foreignKey:RestaurantID"`
}

// BeforeCreate sets UUID before creating the record.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
