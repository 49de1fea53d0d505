package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tablepay/internal/cache"
	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/repository"
)

// OrderStatusService is the single authority for order status mutations. All
// writers, whether webhook, poll or kitchen workflow, go through
// ApplyTransition.
type OrderStatusService interface {
	ApplyTransition(ctx context.Context, orderID uuid.UUID, target model.OrderStatus) (*model.Order, error)
}

type orderStatusService struct {
	orderRepo repository.OrderRepository
	machine   *StateMachine
	cache     *cache.Client
	logger    *zap.Logger
}

// NewOrderStatusService creates a new order status service.
func NewOrderStatusService(orderRepo repository.OrderRepository, cache *cache.Client, logger *zap.Logger) OrderStatusService {
	return &orderStatusService{
		orderRepo: orderRepo,
		machine:   NewStateMachine(),
		cache:     cache,
		logger:    logger,
	}
}

// ApplyTransition reads the current status, verifies the edge is legal and
// writes conditionally. Applying the same target twice is an idempotent
// success. A status that already moved past the target, or a lost race with a
// concurrent writer reaching a different status, is a stale-transition error.
func (s *orderStatusService) ApplyTransition(ctx context.Context, orderID uuid.UUID, target model.OrderStatus) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.ErrOrderNotFound
	}

	if err := s.machine.CanTransition(order.Status, target); err != nil {
		if order.Status == target {
			// Same target delivered twice: converged, nothing to do.
			return order, nil
		}
		if errors.Is(err, errors.ErrTransitionNotAllowed) {
			// A missing edge is a bug or an attack, not delivery jitter.
			s.logger.Error("illegal order status transition rejected",
				zap.String("order_id", orderID.String()),
				zap.String("from", string(order.Status)),
				zap.String("to", string(target)),
			)
		}
		return nil, err
	}

	ok, err := s.orderRepo.UpdateStatusIf(ctx, orderID, order.Status, target)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if !ok {
		// A concurrent writer moved the order between our read and write.
		current, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, errors.ErrOrderNotFound
		}
		if current.Status == target {
			return current, nil
		}
		return nil, errors.ErrStaleTransition
	}

	order.Status = target
	_ = s.cache.Delete(ctx, orderStatusCacheKey(orderID))

	s.logger.Info("order status transition applied",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(target)),
	)
	return order, nil
}

func orderStatusCacheKey(orderID uuid.UUID) string {
	return "order_status:" + orderID.String()
}
