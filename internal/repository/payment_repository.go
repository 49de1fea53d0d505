package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tablepay/internal/model"
)

// PaymentRepository defines payment persistence operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Update(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Payment, error)
	// FindLatestByOrderID returns the most recent payment attempt for an order.
	FindLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)
	// FindOpenByOrderID returns the non-terminal payment for an order, if any.
	// At most one may exist at a time.
	FindOpenByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)
	// FindByProviderPaymentID returns the most recent payment holding the
	// provider-side reference. Used to attribute webhooks whose payload
	// carries no session metadata.
	FindByProviderPaymentID(ctx context.Context, provider model.ProviderName, providerPaymentID string) (*model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment record.
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// Update updates an existing payment record.
func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// FindByID finds a payment by ID within its owning restaurant.
func (r *paymentRepository) FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindLatestByOrderID finds the most recent payment for an order.
func (r *paymentRepository) FindLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindOpenByOrderID finds the non-terminal payment for an order.
func (r *paymentRepository) FindOpenByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, []model.PaymentStatus{
			model.PaymentStatusPending,
			model.PaymentStatusCompleted,
		}).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByProviderPaymentID finds the most recent payment by provider reference.
func (r *paymentRepository) FindByProviderPaymentID(ctx context.Context, provider model.ProviderName, providerPaymentID string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_payment_id = ?", provider, providerPaymentID).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// PaymentLogRepository defines payment audit log persistence operations.
type PaymentLogRepository interface {
	Create(ctx context.Context, log *model.PaymentLog) error
	CreateBatch(ctx context.Context, logs []model.PaymentLog) error
}

type paymentLogRepository struct {
	db *gorm.DB
}

// NewPaymentLogRepository creates a new payment log repository.
func NewPaymentLogRepository(db *gorm.DB) PaymentLogRepository {
	return &paymentLogRepository{db: db}
}

// Create creates a new payment log entry.
func (r *paymentLogRepository) Create(ctx context.Context, log *model.PaymentLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// CreateBatch creates multiple payment log entries in a single transaction.
func (r *paymentLogRepository) CreateBatch(ctx context.Context, logs []model.PaymentLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}
