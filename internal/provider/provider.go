package provider

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tablepay/internal/model"
)

// Metadata keys embedded in every checkout session so that later webhooks can
// be attributed back to the owning tenant and order.
const (
	MetadataOrderIDKey      = "order_id"
	MetadataRestaurantIDKey = "restaurant_id"
)

// CheckoutParams carries everything a provider needs to open a checkout session.
type CheckoutParams struct {
	OrderID       uuid.UUID
	RestaurantID  uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession is the provider-agnostic result of opening a checkout session.
type CheckoutSession struct {
	CheckoutURL       string
	ProviderPaymentID string
}

// WebhookOutcome is the normalized result of handling a verified webhook
// event. Actionable is false for event types that carry no payment outcome;
// such events are still acknowledged with success so the provider does not
// retry them indefinitely.
type WebhookOutcome struct {
	EventID           string
	EventType         string
	ProviderPaymentID string
	Status            model.PaymentStatus
	Actionable        bool
}

// RefundResult is the provider-agnostic result of a refund call.
type RefundResult struct {
	RefundID string
	Amount   decimal.Decimal
}

// Provider is the capability contract implemented per concrete payment
// processor. New providers are added by implementing this interface; the
// ledger and state machine never change.
type Provider interface {
	// Name returns the provider identity.
	Name() model.ProviderName
	// CreateCheckoutSession opens a provider-hosted checkout flow. The internal
	// order and restaurant ids are embedded in provider-visible metadata.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	// VerifyWebhook checks the signature over the raw, unparsed request body.
	// Re-serializing a parsed body breaks byte-sensitive signature schemes.
	VerifyWebhook(rawBody []byte, header http.Header) error
	// HandleWebhookEvent maps a verified event payload to an internal outcome.
	HandleWebhookEvent(rawBody []byte) (*WebhookOutcome, error)
	// CheckoutStatus asks the provider directly for a session's current state.
	// PENDING means the session has not settled yet.
	CheckoutStatus(ctx context.Context, providerPaymentID string) (model.PaymentStatus, error)
	// Refund refunds a payment, fully when amount is nil. currency is the
	// payment's settlement currency; partial amounts are interpreted in it.
	Refund(ctx context.Context, providerPaymentID string, amount *decimal.Decimal, currency string) (*RefundResult, error)
	// TestConnection performs a cheap read-only call to validate credentials.
	TestConnection(ctx context.Context) error
}

// Builder constructs a Provider from decrypted credential material. The
// webhook secret may be empty for flows that never verify webhooks, such as
// the connection test.
type Builder interface {
	Create(name model.ProviderName, credentialsJSON []byte, webhookSecret string) (Provider, error)
}
