package service

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"tablepay/internal/model"
	"tablepay/internal/provider"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, restaurantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindOpenByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByProviderPaymentID(ctx context.Context, providerName model.ProviderName, providerPaymentID string) (*model.Payment, error) {
	args := m.Called(ctx, providerName, providerPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

// MockPaymentLogRepository is a mock implementation of PaymentLogRepository.
type MockPaymentLogRepository struct {
	mock.Mock
}

func (m *MockPaymentLogRepository) Create(ctx context.Context, log *model.PaymentLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockPaymentLogRepository) CreateBatch(ctx context.Context, logs []model.PaymentLog) error {
	args := m.Called(ctx, logs)
	return args.Error(0)
}

// MockPaymentConfigRepository is a mock implementation of PaymentConfigRepository.
type MockPaymentConfigRepository struct {
	mock.Mock
}

func (m *MockPaymentConfigRepository) Upsert(ctx context.Context, config *model.PaymentConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockPaymentConfigRepository) FindActive(ctx context.Context, restaurantID uuid.UUID, provider model.ProviderName) (*model.PaymentConfig, error) {
	args := m.Called(ctx, restaurantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentConfig), args.Error(1)
}

func (m *MockPaymentConfigRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.PaymentConfig, error) {
	args := m.Called(ctx, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentConfig), args.Error(1)
}

// MockWebhookEventRepository is a mock implementation of WebhookEventRepository.
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) CreateIfNotExists(ctx context.Context, event *model.WebhookEvent) (bool, *model.WebhookEvent, error) {
	args := m.Called(ctx, event)
	if args.Get(1) == nil {
		return args.Bool(0), nil, args.Error(2)
	}
	return args.Bool(0), args.Get(1).(*model.WebhookEvent), args.Error(2)
}

func (m *MockWebhookEventRepository) UpdateStatus(ctx context.Context, id uint, status model.WebhookEventStatus, processingError string) error {
	args := m.Called(ctx, id, status, processingError)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) FindByProviderEvent(ctx context.Context, providerName model.ProviderName, providerEventID string) (*model.WebhookEvent, error) {
	args := m.Called(ctx, providerName, providerEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

// MockRestaurantRepository is a mock implementation of RestaurantRepository.
type MockRestaurantRepository struct {
	mock.Mock
}

func (m *MockRestaurantRepository) Create(ctx context.Context, restaurant *model.Restaurant) error {
	args := m.Called(ctx, restaurant)
	return args.Error(0)
}

func (m *MockRestaurantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

// MockProvider is a mock implementation of provider.Provider.
type MockProvider struct {
	mock.Mock
	name model.ProviderName
}

func (m *MockProvider) Name() model.ProviderName {
	return m.name
}

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params provider.CheckoutParams) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

func (m *MockProvider) VerifyWebhook(rawBody []byte, header http.Header) error {
	args := m.Called(rawBody, header)
	return args.Error(0)
}

func (m *MockProvider) HandleWebhookEvent(rawBody []byte) (*provider.WebhookOutcome, error) {
	args := m.Called(rawBody)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.WebhookOutcome), args.Error(1)
}

func (m *MockProvider) CheckoutStatus(ctx context.Context, providerPaymentID string) (model.PaymentStatus, error) {
	args := m.Called(ctx, providerPaymentID)
	return args.Get(0).(model.PaymentStatus), args.Error(1)
}

func (m *MockProvider) Refund(ctx context.Context, providerPaymentID string, amount *decimal.Decimal, currency string) (*provider.RefundResult, error) {
	args := m.Called(ctx, providerPaymentID, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.RefundResult), args.Error(1)
}

func (m *MockProvider) TestConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockBuilder is a mock implementation of provider.Builder.
type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) Create(name model.ProviderName, credentialsJSON []byte, webhookSecret string) (provider.Provider, error) {
	args := m.Called(name, credentialsJSON, webhookSecret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provider.Provider), args.Error(1)
}

// MockStatusUpdater is a mock implementation of StatusUpdater.
type MockStatusUpdater struct {
	mock.Mock
}

func (m *MockStatusUpdater) ApplyOutcome(ctx context.Context, payment *model.Payment, status model.PaymentStatus, detail string) error {
	args := m.Called(ctx, payment, status, detail)
	return args.Error(0)
}

func (m *MockStatusUpdater) Close() {
	m.Called()
}
