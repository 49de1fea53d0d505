package provider

import (
	"net/http"
	"strings"
	"time"

	"tablepay/internal/errors"
	"tablepay/internal/model"
)

// Factory builds provider instances from decrypted credential material. It
// implements Builder. A single bounded http.Client is shared across all
// instances so every provider network call has the same timeout.
type Factory struct {
	httpClient *http.Client
	baseURL    string
}

// NewFactory creates a provider factory. baseURL is the public base URL of
// this service, used to derive webhook notification URLs.
func NewFactory(timeout time.Duration, baseURL string) *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Create builds the provider variant for name. Credentials are parsed into
// their typed shape immediately; the raw JSON is not retained, persisted or
// logged. An empty webhook secret is valid for flows that never verify
// webhooks, such as the connection test against unsaved credentials.
func (f *Factory) Create(name model.ProviderName, credentialsJSON []byte, webhookSecret string) (Provider, error) {
	switch name {
	case model.ProviderStripe:
		creds, err := ParseStripeCredentials(credentialsJSON)
		if err != nil {
			return nil, err
		}
		return NewStripe(creds, webhookSecret, f.httpClient), nil
	case model.ProviderSquare:
		creds, err := ParseSquareCredentials(credentialsJSON)
		if err != nil {
			return nil, err
		}
		notificationURL := f.baseURL + "/webhooks/" + string(model.ProviderSquare)
		return NewSquare(creds, webhookSecret, notificationURL, f.httpClient), nil
	default:
		return nil, errors.ErrUnsupportedProvider
	}
}

var _ Builder = (*Factory)(nil)
