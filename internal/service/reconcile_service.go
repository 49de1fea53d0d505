package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tablepay/internal/cache"
	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/provider"
	"tablepay/internal/repository"
	"tablepay/internal/vault"
)

// PollResult is the state reported back to a polling client.
type PollResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderStatus   model.OrderStatus   `json:"order_status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

// ReconcileService is the pull-based fallback for the case where the expected
// webhook never arrived. It queries the provider directly and feeds the result
// through the same status updater as webhook ingestion, so both paths converge
// on one idempotent routine.
type ReconcileService interface {
	Poll(ctx context.Context, orderID uuid.UUID) (*PollResult, error)
}

type reconcileService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	resolver    *providerResolver
	updater     StatusUpdater
	cache       *cache.Client
	logger      *zap.Logger
}

// NewReconcileService creates a new reconciliation service.
func NewReconcileService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	configRepo repository.PaymentConfigRepository,
	credVault *vault.Vault,
	builder provider.Builder,
	updater StatusUpdater,
	cache *cache.Client,
	logger *zap.Logger,
) ReconcileService {
	return &reconcileService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		resolver:    &providerResolver{configRepo: configRepo, vault: credVault, builder: builder},
		updater:     updater,
		cache:       cache,
		logger:      logger,
	}
}

// Poll re-derives the provider from the order's restaurant config, asks it
// for the checkout session's current state and applies the outcome. Polling a
// terminal order is a no-op that returns current state.
func (s *reconcileService) Poll(ctx context.Context, orderID uuid.UUID) (*PollResult, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.ErrOrderNotFound
	}

	payment, err := s.paymentRepo.FindLatestByOrderID(ctx, orderID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}

	if order.Status.IsTerminal() {
		return &PollResult{OrderID: orderID, OrderStatus: order.Status, PaymentStatus: payment.Status}, nil
	}

	prov, _, err := s.resolver.resolve(ctx, order.RestaurantID, payment.Provider)
	if err != nil {
		return nil, err
	}

	status, err := prov.CheckoutStatus(ctx, payment.ProviderPaymentID)
	if err != nil {
		s.logger.Error("provider status poll failed",
			zap.String("order_id", orderID.String()),
			zap.String("provider", string(payment.Provider)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("poll provider: %w", err)
	}

	if err := s.updater.ApplyOutcome(ctx, payment, status, "reconciliation poll"); err != nil {
		return nil, err
	}

	// Re-read so the caller sees the converged state.
	current, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.ErrOrderNotFound
	}

	s.logger.Info("reconciliation poll applied",
		zap.String("order_id", orderID.String()),
		zap.String("payment_status", string(payment.Status)),
		zap.String("order_status", string(current.Status)),
	)
	return &PollResult{OrderID: orderID, OrderStatus: current.Status, PaymentStatus: payment.Status}, nil
}
