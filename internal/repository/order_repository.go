package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tablepay/internal/model"
)

// OrderRepository defines order persistence operations.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// UpdateStatusIf performs a conditional status write: the update succeeds
	// only if the current status still matches from. It returns false when the
	// row already moved, which is how concurrent webhook/poll races are
	// detected without a row lock.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates a new order record.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID finds an order by ID.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusIf conditionally updates the order status.
func (r *orderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
