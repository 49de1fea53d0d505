package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"tablepay/internal/errors"
	"tablepay/internal/model"
)

// StripeSignatureHeader is the header carrying the Stripe webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// stripeProvider implements Provider against the official Stripe SDK. Each
// instance holds its own client.API so tenant keys never touch global state.
type stripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripe creates a Stripe-like provider from typed credentials.
func NewStripe(creds *StripeCredentials, webhookSecret string, httpClient *http.Client) Provider {
	api := &client.API{}
	api.Init(creds.SecretKey, stripe.NewBackends(httpClient))
	return &stripeProvider{api: api, webhookSecret: webhookSecret}
}

func (p *stripeProvider) Name() model.ProviderName {
	return model.ProviderStripe
}

// CreateCheckoutSession opens a hosted checkout session for the order amount.
// Amounts are converted to minor units; only two-decimal currencies are sold
// through the platform.
func (p *stripeProvider) CreateCheckoutSession(ctx context.Context, cp CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(cp.SuccessURL),
		CancelURL:         stripe.String(cp.CancelURL),
		ClientReferenceID: stripe.String(cp.OrderID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(cp.Currency)),
					UnitAmount: stripe.Int64(minorUnits(cp.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + cp.OrderID.String()),
					},
				},
			},
		},
	}
	params.Context = ctx
	if cp.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(cp.CustomerEmail)
	}
	params.AddMetadata(MetadataOrderIDKey, cp.OrderID.String())
	params.AddMetadata(MetadataRestaurantIDKey, cp.RestaurantID.String())
	for k, v := range cp.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return &CheckoutSession{
		CheckoutURL:       sess.URL,
		ProviderPaymentID: sess.ID,
	}, nil
}

// VerifyWebhook validates the Stripe-Signature header against the raw body.
func (p *stripeProvider) VerifyWebhook(rawBody []byte, header http.Header) error {
	sig := header.Get(StripeSignatureHeader)
	if sig == "" || p.webhookSecret == "" {
		return errors.ErrVerificationFailed
	}
	if _, err := webhook.ConstructEvent(rawBody, sig, p.webhookSecret); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrVerificationFailed, "stripe signature mismatch")
	}
	return nil
}

// HandleWebhookEvent maps Stripe event types to internal payment statuses.
func (p *stripeProvider) HandleWebhookEvent(rawBody []byte) (*WebhookOutcome, error) {
	var event stripe.Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("parse stripe event: %w", err)
	}

	outcome := &WebhookOutcome{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	switch string(event.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		sess, err := unmarshalSession(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		// A completed session with an unpaid payment_status (delayed payment
		// methods) settles later via async_payment_succeeded.
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return outcome, nil
		}
		outcome.ProviderPaymentID = sess.ID
		outcome.Status = model.PaymentStatusCompleted
		outcome.Actionable = true
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		sess, err := unmarshalSession(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		outcome.ProviderPaymentID = sess.ID
		outcome.Status = model.PaymentStatusFailed
		outcome.Actionable = true
	case "charge.refunded":
		outcome.Status = model.PaymentStatusRefunded
		outcome.Actionable = true
	default:
		// Received, not actionable. Acknowledged so Stripe stops retrying.
	}
	return outcome, nil
}

// CheckoutStatus fetches a session and normalizes its state.
func (p *stripeProvider) CheckoutStatus(ctx context.Context, providerPaymentID string) (model.PaymentStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := p.api.CheckoutSessions.Get(providerPaymentID, params)
	if err != nil {
		return "", fmt.Errorf("stripe get checkout session: %w", err)
	}
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return model.PaymentStatusCompleted, nil
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return model.PaymentStatusFailed, nil
	default:
		return model.PaymentStatusPending, nil
	}
}

// Refund refunds the payment intent behind a checkout session. Stripe refunds
// settle in the intent's own currency, so currency is not sent.
func (p *stripeProvider) Refund(ctx context.Context, providerPaymentID string, amount *decimal.Decimal, currency string) (*RefundResult, error) {
	sessParams := &stripe.CheckoutSessionParams{}
	sessParams.Context = ctx
	sess, err := p.api.CheckoutSessions.Get(providerPaymentID, sessParams)
	if err != nil {
		return nil, fmt.Errorf("stripe get checkout session: %w", err)
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return nil, fmt.Errorf("stripe session %s has no payment intent", providerPaymentID)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
	}
	params.Context = ctx
	if amount != nil {
		params.Amount = stripe.Int64(minorUnits(*amount))
	}
	refund, err := p.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe refund: %w", err)
	}
	return &RefundResult{
		RefundID: refund.ID,
		Amount:   decimal.NewFromInt(refund.Amount).Shift(-2),
	}, nil
}

// TestConnection performs a read-only balance retrieval.
func (p *stripeProvider) TestConnection(ctx context.Context) error {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	if _, err := p.api.Balance.Get(params); err != nil {
		return fmt.Errorf("stripe balance check: %w", err)
	}
	return nil
}

func unmarshalSession(raw json.RawMessage) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("parse stripe checkout session: %w", err)
	}
	return &sess, nil
}

// minorUnits converts a two-decimal major unit amount to provider minor units.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
