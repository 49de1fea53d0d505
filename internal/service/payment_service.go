package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/provider"
	"tablepay/internal/repository"
	"tablepay/internal/vault"
)

// PaymentService handles checkout intent creation and refunds.
type PaymentService interface {
	// CreateIntent opens a provider checkout session for an existing order.
	// name may be empty, in which case the restaurant's active config decides.
	CreateIntent(ctx context.Context, orderID uuid.UUID, name model.ProviderName) (*model.Payment, error)
	// Refund refunds a COMPLETED payment, fully when amount is nil, and
	// cancels the order.
	Refund(ctx context.Context, restaurantID, paymentID uuid.UUID, amount *decimal.Decimal) (*provider.RefundResult, error)
}

type paymentService struct {
	orderRepo      repository.OrderRepository
	paymentRepo    repository.PaymentRepository
	restaurantRepo repository.RestaurantRepository
	resolver       *providerResolver
	orderStatus    OrderStatusService
	updater        StatusUpdater
	baseURL        string
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	restaurantRepo repository.RestaurantRepository,
	configRepo repository.PaymentConfigRepository,
	credVault *vault.Vault,
	builder provider.Builder,
	orderStatus OrderStatusService,
	updater StatusUpdater,
	baseURL string,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		orderRepo:      orderRepo,
		paymentRepo:    paymentRepo,
		restaurantRepo: restaurantRepo,
		resolver:       &providerResolver{configRepo: configRepo, vault: credVault, builder: builder},
		orderStatus:    orderStatus,
		updater:        updater,
		baseURL:        baseURL,
		logger:         logger,
	}
}

// CreateIntent validates the order, opens the checkout session and records
// the Payment. The Payment row is created only after the provider call
// succeeds, so a timed-out session creation leaves no ambiguous state behind.
func (s *paymentService) CreateIntent(ctx context.Context, orderID uuid.UUID, name model.ProviderName) (*model.Payment, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.ErrOrderNotFound
	}
	if !orderPayable(order.Status) {
		return nil, errors.ErrOrderNotPayable
	}

	restaurant, err := s.restaurantRepo.FindByID(ctx, order.RestaurantID)
	if err != nil {
		return nil, errors.ErrRestaurantNotFound
	}
	if !restaurant.Active {
		return nil, errors.ErrRestaurantInactive
	}

	// At most one non-terminal payment per order: reuse an open session
	// instead of opening a second one.
	if open, err := s.paymentRepo.FindOpenByOrderID(ctx, orderID); err == nil {
		return open, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find open payment: %w", err)
	}

	var prov provider.Provider
	if name != "" {
		prov, _, err = s.resolver.resolve(ctx, order.RestaurantID, name)
	} else {
		prov, _, err = s.resolver.resolveAny(ctx, order.RestaurantID)
	}
	if err != nil {
		return nil, err
	}

	session, err := prov.CreateCheckoutSession(ctx, provider.CheckoutParams{
		OrderID:       order.ID,
		RestaurantID:  order.RestaurantID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		SuccessURL:    s.baseURL + "/payments/success?order_id=" + order.ID.String(),
		CancelURL:     s.baseURL + "/payments/cancel?order_id=" + order.ID.String(),
	})
	if err != nil {
		s.logger.Error("checkout session creation failed",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", string(prov.Name())),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	payment := &model.Payment{
		RestaurantID:      order.RestaurantID,
		OrderID:           order.ID,
		Provider:          prov.Name(),
		ProviderPaymentID: session.ProviderPaymentID,
		Amount:            order.TotalAmount,
		Currency:          order.Currency,
		Status:            model.PaymentStatusPending,
		CheckoutURL:       session.CheckoutURL,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if _, err := s.orderStatus.ApplyTransition(ctx, order.ID, model.OrderStatusPaymentPending); err != nil {
		// The payment row exists and the session is live; a stale transition
		// here only means the order was already holding.
		if !errors.Is(err, errors.ErrStaleTransition) {
			return nil, err
		}
	}

	s.logger.Info("checkout session created",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider", string(prov.Name())),
	)
	return payment, nil
}

// Refund refunds a completed payment through its provider and funnels the
// REFUNDED outcome through the shared status updater.
func (s *paymentService) Refund(ctx context.Context, restaurantID, paymentID uuid.UUID, amount *decimal.Decimal) (*provider.RefundResult, error) {
	payment, err := s.paymentRepo.FindByID(ctx, restaurantID, paymentID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}
	if payment.Status != model.PaymentStatusCompleted {
		return nil, errors.ErrPaymentNotRefundable
	}
	if amount != nil {
		if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(payment.Amount) {
			return nil, errors.ErrInvalidAmount
		}
	}

	prov, _, err := s.resolver.resolve(ctx, restaurantID, payment.Provider)
	if err != nil {
		return nil, err
	}

	result, err := prov.Refund(ctx, payment.ProviderPaymentID, amount, payment.Currency)
	if err != nil {
		s.logger.Error("refund failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("provider", string(payment.Provider)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("provider refund: %w", err)
	}

	payment.RefundID = result.RefundID
	if err := s.updater.ApplyOutcome(ctx, payment, model.PaymentStatusRefunded, "refund "+result.RefundID); err != nil {
		return nil, err
	}
	return result, nil
}

// orderPayable reports whether a checkout session may be opened for the
// order. Orders already paid or further along are rejected.
func orderPayable(status model.OrderStatus) bool {
	return status == model.OrderStatusCreated || status == model.OrderStatusPaymentPending
}
