package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tablepay/internal/errors"
	"tablepay/internal/model"
)

// SquareSignatureHeader is the header carrying the Square webhook signature:
// base64(HMAC-SHA256(secret, notificationURL + rawBody)).
const SquareSignatureHeader = "x-square-signature"

const squareProductionURL = "https://connect.squareup.com"

// squareProvider implements Provider against the Square REST API. No Go SDK
// is used; the surface needed here is four endpoints.
type squareProvider struct {
	creds           *SquareCredentials
	webhookSecret   string
	notificationURL string
	baseURL         string
	httpClient      *http.Client
}

// NewSquare creates a Square-like provider from typed credentials. The
// notification URL participates in webhook signature computation and must
// match the URL Square delivers to.
func NewSquare(creds *SquareCredentials, webhookSecret, notificationURL string, httpClient *http.Client) Provider {
	return &squareProvider{
		creds:           creds,
		webhookSecret:   webhookSecret,
		notificationURL: notificationURL,
		baseURL:         squareProductionURL,
		httpClient:      httpClient,
	}
}

func (p *squareProvider) Name() model.ProviderName {
	return model.ProviderSquare
}

type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type squarePaymentLinkRequest struct {
	IdempotencyKey string      `json:"idempotency_key"`
	Order          squareOrder `json:"order"`
}

type squareOrder struct {
	LocationID string            `json:"location_id"`
	LineItems  []squareLineItem  `json:"line_items"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type squareLineItem struct {
	Name           string      `json:"name"`
	Quantity       string      `json:"quantity"`
	BasePriceMoney squareMoney `json:"base_price_money"`
}

type squarePaymentLinkResponse struct {
	PaymentLink struct {
		ID      string `json:"id"`
		URL     string `json:"url"`
		OrderID string `json:"order_id"`
	} `json:"payment_link"`
}

// CreateCheckoutSession creates a Square payment link. The Square order id
// backing the link becomes the provider payment id, since payment webhooks
// reference it.
func (p *squareProvider) CreateCheckoutSession(ctx context.Context, cp CheckoutParams) (*CheckoutSession, error) {
	metadata := map[string]string{
		MetadataOrderIDKey:      cp.OrderID.String(),
		MetadataRestaurantIDKey: cp.RestaurantID.String(),
	}
	for k, v := range cp.Metadata {
		metadata[k] = v
	}

	reqBody := squarePaymentLinkRequest{
		IdempotencyKey: uuid.New().String(),
		Order: squareOrder{
			LocationID: p.creds.LocationID,
			LineItems: []squareLineItem{
				{
					Name:     "Order " + cp.OrderID.String(),
					Quantity: "1",
					BasePriceMoney: squareMoney{
						Amount:   minorUnits(cp.Amount),
						Currency: cp.Currency,
					},
				},
			},
			Metadata: metadata,
		},
	}

	var resp squarePaymentLinkResponse
	if err := p.call(ctx, http.MethodPost, "/v2/online-checkout/payment-links", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("square create payment link: %w", err)
	}
	return &CheckoutSession{
		CheckoutURL:       resp.PaymentLink.URL,
		ProviderPaymentID: resp.PaymentLink.OrderID,
	}, nil
}

// VerifyWebhook checks the x-square-signature header over notification URL +
// raw body.
func (p *squareProvider) VerifyWebhook(rawBody []byte, header http.Header) error {
	sig := header.Get(SquareSignatureHeader)
	if sig == "" || p.webhookSecret == "" {
		return errors.ErrVerificationFailed
	}
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(p.notificationURL))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("%w: %s", errors.ErrVerificationFailed, "square signature mismatch")
	}
	return nil
}

type squareWebhookEnvelope struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Object struct {
			Payment struct {
				ID      string `json:"id"`
				Status  string `json:"status"`
				OrderID string `json:"order_id"`
			} `json:"payment"`
			Refund struct {
				ID      string `json:"id"`
				Status  string `json:"status"`
				OrderID string `json:"order_id"`
			} `json:"refund"`
			Order struct {
				ID       string            `json:"id"`
				State    string            `json:"state"`
				Metadata map[string]string `json:"metadata"`
			} `json:"order"`
		} `json:"object"`
	} `json:"data"`
}

// HandleWebhookEvent maps Square event types to internal payment statuses.
func (p *squareProvider) HandleWebhookEvent(rawBody []byte) (*WebhookOutcome, error) {
	var event squareWebhookEnvelope
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("parse square event: %w", err)
	}

	outcome := &WebhookOutcome{
		EventID:   event.EventID,
		EventType: event.Type,
	}

	switch event.Type {
	case "payment.created", "payment.updated":
		payment := event.Data.Object.Payment
		outcome.ProviderPaymentID = payment.OrderID
		switch payment.Status {
		case "COMPLETED", "APPROVED":
			outcome.Status = model.PaymentStatusCompleted
			outcome.Actionable = true
		case "FAILED", "CANCELED":
			outcome.Status = model.PaymentStatusFailed
			outcome.Actionable = true
		}
	case "refund.created", "refund.updated":
		refund := event.Data.Object.Refund
		outcome.ProviderPaymentID = refund.OrderID
		if refund.Status == "COMPLETED" {
			outcome.Status = model.PaymentStatusRefunded
			outcome.Actionable = true
		}
	default:
		// Received, not actionable.
	}
	return outcome, nil
}

type squareOrderResponse struct {
	Order struct {
		ID         string      `json:"id"`
		State      string      `json:"state"`
		TotalMoney squareMoney `json:"total_money"`
		Tenders    []struct {
			ID string `json:"id"`
		} `json:"tenders"`
	} `json:"order"`
}

// CheckoutStatus fetches the Square order behind the payment link.
func (p *squareProvider) CheckoutStatus(ctx context.Context, providerPaymentID string) (model.PaymentStatus, error) {
	var resp squareOrderResponse
	if err := p.call(ctx, http.MethodGet, "/v2/orders/"+providerPaymentID, nil, &resp); err != nil {
		return "", fmt.Errorf("square get order: %w", err)
	}
	switch resp.Order.State {
	case "COMPLETED":
		return model.PaymentStatusCompleted, nil
	case "CANCELED":
		return model.PaymentStatusFailed, nil
	default:
		return model.PaymentStatusPending, nil
	}
}

type squareRefundRequest struct {
	IdempotencyKey string       `json:"idempotency_key"`
	PaymentID      string       `json:"payment_id"`
	AmountMoney    *squareMoney `json:"amount_money,omitempty"`
}

type squareRefundResponse struct {
	Refund struct {
		ID          string      `json:"id"`
		Status      string      `json:"status"`
		AmountMoney squareMoney `json:"amount_money"`
	} `json:"refund"`
}

// Refund refunds the tender behind the Square order, fully when amount is nil.
// Square requires amount_money on every refund, so a full refund sends the
// order's own total back.
func (p *squareProvider) Refund(ctx context.Context, providerPaymentID string, amount *decimal.Decimal, currency string) (*RefundResult, error) {
	var orderResp squareOrderResponse
	if err := p.call(ctx, http.MethodGet, "/v2/orders/"+providerPaymentID, nil, &orderResp); err != nil {
		return nil, fmt.Errorf("square get order: %w", err)
	}
	if len(orderResp.Order.Tenders) == 0 {
		return nil, fmt.Errorf("square order %s has no tenders", providerPaymentID)
	}

	money := orderResp.Order.TotalMoney
	if amount != nil {
		money = squareMoney{Amount: minorUnits(*amount), Currency: currency}
	}
	reqBody := squareRefundRequest{
		IdempotencyKey: uuid.New().String(),
		PaymentID:      orderResp.Order.Tenders[0].ID,
		AmountMoney:    &money,
	}

	var resp squareRefundResponse
	if err := p.call(ctx, http.MethodPost, "/v2/refunds", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("square refund: %w", err)
	}
	return &RefundResult{
		RefundID: resp.Refund.ID,
		Amount:   decimal.NewFromInt(resp.Refund.AmountMoney.Amount).Shift(-2),
	}, nil
}

// TestConnection retrieves the configured location.
func (p *squareProvider) TestConnection(ctx context.Context) error {
	if err := p.call(ctx, http.MethodGet, "/v2/locations/"+p.creds.LocationID, nil, nil); err != nil {
		return fmt.Errorf("square location check: %w", err)
	}
	return nil
}

// call performs an authenticated request against the Square API.
func (p *squareProvider) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("square API status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
