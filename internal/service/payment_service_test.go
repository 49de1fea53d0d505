package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/provider"
)

type paymentFixture struct {
	orderRepo      *MockOrderRepository
	paymentRepo    *MockPaymentRepository
	restaurantRepo *MockRestaurantRepository
	configRepo     *MockPaymentConfigRepository
	builder        *MockBuilder
	prov           *MockProvider
	updater        *MockStatusUpdater
	service        PaymentService
	config         *model.PaymentConfig
}

func newPaymentFixture(t *testing.T, restaurantID uuid.UUID) *paymentFixture {
	t.Helper()
	v := testVault(t)
	credsEnc, err := v.Encrypt([]byte(`{"secretKey":"sk_test_123"}`))
	assert.NoError(t, err)

	f := &paymentFixture{
		orderRepo:      new(MockOrderRepository),
		paymentRepo:    new(MockPaymentRepository),
		restaurantRepo: new(MockRestaurantRepository),
		configRepo:     new(MockPaymentConfigRepository),
		builder:        new(MockBuilder),
		prov:           &MockProvider{name: model.ProviderStripe},
		updater:        new(MockStatusUpdater),
		config: &model.PaymentConfig{
			RestaurantID:   restaurantID,
			Provider:       model.ProviderStripe,
			CredentialsEnc: credsEnc,
			Active:         true,
		},
	}
	orderStatus := NewOrderStatusService(f.orderRepo, nil, zap.NewNop())
	f.service = NewPaymentService(
		f.orderRepo, f.paymentRepo, f.restaurantRepo, f.configRepo,
		v, f.builder, orderStatus, f.updater, "https://pay.example.com", zap.NewNop(),
	)
	return f
}

func TestCreateIntent_OpensSessionAndHoldsOrder(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	orderID := uuid.New()
	order := &model.Order{
		ID:           orderID,
		RestaurantID: restaurantID,
		Status:       model.OrderStatusCreated,
		TotalAmount:  decimal.NewFromFloat(25.00),
		Currency:     "USD",
	}

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(order, nil)
	f.restaurantRepo.On("FindByID", mock.Anything, restaurantID).Return(&model.Restaurant{ID: restaurantID, Active: true}, nil)
	f.paymentRepo.On("FindOpenByOrderID", mock.Anything, orderID).Return(nil, gorm.ErrRecordNotFound)
	f.configRepo.On("FindActive", mock.Anything, restaurantID, model.ProviderStripe).Return(f.config, nil)
	f.builder.On("Create", model.ProviderStripe, mock.Anything, "").Return(f.prov, nil)
	f.prov.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(params provider.CheckoutParams) bool {
		return params.OrderID == orderID && params.RestaurantID == restaurantID
	})).Return(&provider.CheckoutSession{
		CheckoutURL:       "https://checkout.stripe.com/pay/cs_1",
		ProviderPaymentID: "cs_1",
	}, nil)
	f.paymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)
	f.orderRepo.On("UpdateStatusIf", mock.Anything, orderID, model.OrderStatusCreated, model.OrderStatusPaymentPending).Return(true, nil)

	payment, err := f.service.CreateIntent(context.Background(), orderID, model.ProviderStripe)
	assert.NoError(t, err)
	assert.Equal(t, "cs_1", payment.ProviderPaymentID)
	assert.Equal(t, model.PaymentStatusPending, payment.Status)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_1", payment.CheckoutURL)
	f.prov.AssertExpectations(t)
}

func TestCreateIntent_ReusesOpenSession(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	orderID := uuid.New()
	existing := &model.Payment{
		ID:          uuid.New(),
		OrderID:     orderID,
		Status:      model.PaymentStatusPending,
		CheckoutURL: "https://checkout.stripe.com/pay/cs_open",
	}

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, RestaurantID: restaurantID, Status: model.OrderStatusPaymentPending,
	}, nil)
	f.restaurantRepo.On("FindByID", mock.Anything, restaurantID).Return(&model.Restaurant{ID: restaurantID, Active: true}, nil)
	f.paymentRepo.On("FindOpenByOrderID", mock.Anything, orderID).Return(existing, nil)

	payment, err := f.service.CreateIntent(context.Background(), orderID, model.ProviderStripe)
	assert.NoError(t, err)
	assert.Equal(t, existing.ID, payment.ID)
	f.prov.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCreateIntent_RejectsUnpayableOrder(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	orderID := uuid.New()

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, RestaurantID: restaurantID, Status: model.OrderStatusPaid,
	}, nil)

	_, err := f.service.CreateIntent(context.Background(), orderID, model.ProviderStripe)
	assert.ErrorIs(t, err, errors.ErrOrderNotPayable)
}

func TestCreateIntent_RejectsInactiveRestaurant(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	orderID := uuid.New()

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, RestaurantID: restaurantID, Status: model.OrderStatusCreated,
	}, nil)
	f.restaurantRepo.On("FindByID", mock.Anything, restaurantID).Return(&model.Restaurant{ID: restaurantID, Active: false}, nil)

	_, err := f.service.CreateIntent(context.Background(), orderID, model.ProviderStripe)
	assert.ErrorIs(t, err, errors.ErrRestaurantInactive)
}

func TestCreateIntent_NoConfig(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	orderID := uuid.New()

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, RestaurantID: restaurantID, Status: model.OrderStatusCreated,
	}, nil)
	f.restaurantRepo.On("FindByID", mock.Anything, restaurantID).Return(&model.Restaurant{ID: restaurantID, Active: true}, nil)
	f.paymentRepo.On("FindOpenByOrderID", mock.Anything, orderID).Return(nil, gorm.ErrRecordNotFound)
	f.configRepo.On("FindActive", mock.Anything, restaurantID, model.ProviderStripe).Return(nil, gorm.ErrRecordNotFound)

	_, err := f.service.CreateIntent(context.Background(), orderID, model.ProviderStripe)
	assert.ErrorIs(t, err, errors.ErrPaymentNotConfigured)
}

func TestCreateIntent_DefaultsToActiveConfig(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	orderID := uuid.New()

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, RestaurantID: restaurantID, Status: model.OrderStatusCreated,
		TotalAmount: decimal.NewFromFloat(10), Currency: "USD",
	}, nil)
	f.restaurantRepo.On("FindByID", mock.Anything, restaurantID).Return(&model.Restaurant{ID: restaurantID, Active: true}, nil)
	f.paymentRepo.On("FindOpenByOrderID", mock.Anything, orderID).Return(nil, gorm.ErrRecordNotFound)
	f.configRepo.On("ListByRestaurant", mock.Anything, restaurantID).Return([]model.PaymentConfig{*f.config}, nil)
	f.builder.On("Create", model.ProviderStripe, mock.Anything, "").Return(f.prov, nil)
	f.prov.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(&provider.CheckoutSession{
		CheckoutURL: "https://checkout.stripe.com/pay/cs_2", ProviderPaymentID: "cs_2",
	}, nil)
	f.paymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)
	f.orderRepo.On("UpdateStatusIf", mock.Anything, orderID, model.OrderStatusCreated, model.OrderStatusPaymentPending).Return(true, nil)

	payment, err := f.service.CreateIntent(context.Background(), orderID, "")
	assert.NoError(t, err)
	assert.Equal(t, model.ProviderStripe, payment.Provider)
}

func TestCreateIntent_WrappedNotFoundStillOpensSession(t *testing.T) {
	// GORM may wrap its sentinel; the open-session lookup must unwrap it.
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	orderID := uuid.New()

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(&model.Order{
		ID: orderID, RestaurantID: restaurantID, Status: model.OrderStatusCreated,
		TotalAmount: decimal.NewFromFloat(12), Currency: "USD",
	}, nil)
	f.restaurantRepo.On("FindByID", mock.Anything, restaurantID).Return(&model.Restaurant{ID: restaurantID, Active: true}, nil)
	f.paymentRepo.On("FindOpenByOrderID", mock.Anything, orderID).
		Return(nil, fmt.Errorf("find open payment: %w", gorm.ErrRecordNotFound))
	f.configRepo.On("FindActive", mock.Anything, restaurantID, model.ProviderStripe).Return(f.config, nil)
	f.builder.On("Create", model.ProviderStripe, mock.Anything, "").Return(f.prov, nil)
	f.prov.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(&provider.CheckoutSession{
		CheckoutURL: "https://checkout.stripe.com/pay/cs_3", ProviderPaymentID: "cs_3",
	}, nil)
	f.paymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)
	f.orderRepo.On("UpdateStatusIf", mock.Anything, orderID, model.OrderStatusCreated, model.OrderStatusPaymentPending).Return(true, nil)

	payment, err := f.service.CreateIntent(context.Background(), orderID, model.ProviderStripe)
	assert.NoError(t, err)
	assert.Equal(t, "cs_3", payment.ProviderPaymentID)
}

func TestRefund_FullRefund(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	paymentID := uuid.New()
	payment := &model.Payment{
		ID:                paymentID,
		RestaurantID:      restaurantID,
		OrderID:           uuid.New(),
		Provider:          model.ProviderStripe,
		ProviderPaymentID: "cs_paid",
		Amount:            decimal.NewFromFloat(30.00),
		Currency:          "EUR",
		Status:            model.PaymentStatusCompleted,
	}

	f.paymentRepo.On("FindByID", mock.Anything, restaurantID, paymentID).Return(payment, nil)
	f.configRepo.On("FindActive", mock.Anything, restaurantID, model.ProviderStripe).Return(f.config, nil)
	f.builder.On("Create", model.ProviderStripe, mock.Anything, "").Return(f.prov, nil)
	// The provider must see the payment's own settlement currency.
	f.prov.On("Refund", mock.Anything, "cs_paid", (*decimal.Decimal)(nil), "EUR").Return(&provider.RefundResult{
		RefundID: "re_1",
		Amount:   decimal.NewFromFloat(30.00),
	}, nil)
	f.updater.On("ApplyOutcome", mock.Anything, payment, model.PaymentStatusRefunded, "refund re_1").Return(nil)

	result, err := f.service.Refund(context.Background(), restaurantID, paymentID, nil)
	assert.NoError(t, err)
	assert.Equal(t, "re_1", result.RefundID)
	assert.Equal(t, "re_1", payment.RefundID)
	f.updater.AssertExpectations(t)
}

func TestRefund_OnlyCompletedPayments(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	paymentID := uuid.New()

	f.paymentRepo.On("FindByID", mock.Anything, restaurantID, paymentID).Return(&model.Payment{
		ID: paymentID, RestaurantID: restaurantID, Status: model.PaymentStatusPending,
	}, nil)

	_, err := f.service.Refund(context.Background(), restaurantID, paymentID, nil)
	assert.ErrorIs(t, err, errors.ErrPaymentNotRefundable)
}

func TestRefund_AmountBounds(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	paymentID := uuid.New()
	payment := &model.Payment{
		ID:           paymentID,
		RestaurantID: restaurantID,
		Amount:       decimal.NewFromFloat(20.00),
		Status:       model.PaymentStatusCompleted,
	}
	f.paymentRepo.On("FindByID", mock.Anything, restaurantID, paymentID).Return(payment, nil)

	tooMuch := decimal.NewFromFloat(25.00)
	_, err := f.service.Refund(context.Background(), restaurantID, paymentID, &tooMuch)
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)

	zero := decimal.Zero
	_, err = f.service.Refund(context.Background(), restaurantID, paymentID, &zero)
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
}

func TestRefund_OtherTenantsPaymentInvisible(t *testing.T) {
	restaurantID := uuid.New()
	f := newPaymentFixture(t, restaurantID)
	paymentID := uuid.New()

	// Tenant-scoped lookup: the row exists but belongs to another restaurant.
	f.paymentRepo.On("FindByID", mock.Anything, restaurantID, paymentID).Return(nil, fmt.Errorf("record not found"))

	_, err := f.service.Refund(context.Background(), restaurantID, paymentID, nil)
	assert.ErrorIs(t, err, errors.ErrPaymentNotFound)
}
