package provider

import (
	"encoding/json"
	"fmt"

	"tablepay/internal/errors"
	"tablepay/internal/model"
)

// StripeCredentials is the typed credential shape for the Stripe-like provider.
// Untyped secret material exists only between decryption and this parse.
type StripeCredentials struct {
	SecretKey     string `json:"secretKey"`
	PublicKey     string `json:"publicKey,omitempty"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

// SquareCredentials is the typed credential shape for the Square-like provider.
type SquareCredentials struct {
	AccessToken   string `json:"accessToken"`
	LocationID    string `json:"locationId"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

// CredentialPresence reports which secret fields are present in a stored
// credential blob without exposing any of their values.
type CredentialPresence struct {
	HasSecretKey     bool `json:"hasSecretKey"`
	HasPublicKey     bool `json:"hasPublicKey"`
	HasAccessToken   bool `json:"hasAccessToken"`
	HasLocationID    bool `json:"hasLocationId"`
	HasWebhookSecret bool `json:"hasWebhookSecret"`
}

// ParseStripeCredentials parses and validates Stripe credentials.
func ParseStripeCredentials(raw []byte) (*StripeCredentials, error) {
	var creds StripeCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("%w: malformed stripe credentials", errors.ErrInvalidCredentials)
	}
	if creds.SecretKey == "" {
		return nil, fmt.Errorf("%w: secretKey is required", errors.ErrInvalidCredentials)
	}
	return &creds, nil
}

// ParseSquareCredentials parses and validates Square credentials.
func ParseSquareCredentials(raw []byte) (*SquareCredentials, error) {
	var creds SquareCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("%w: malformed square credentials", errors.ErrInvalidCredentials)
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("%w: accessToken is required", errors.ErrInvalidCredentials)
	}
	if creds.LocationID == "" {
		return nil, fmt.Errorf("%w: locationId is required", errors.ErrInvalidCredentials)
	}
	return &creds, nil
}

// Presence inspects a decrypted credential blob and reports which fields are
// set. Used by the admin config endpoint, which must never echo values.
func Presence(name model.ProviderName, raw []byte, hasWebhookSecret bool) CredentialPresence {
	presence := CredentialPresence{HasWebhookSecret: hasWebhookSecret}
	switch name {
	case model.ProviderStripe:
		var creds StripeCredentials
		if err := json.Unmarshal(raw, &creds); err == nil {
			presence.HasSecretKey = creds.SecretKey != ""
			presence.HasPublicKey = creds.PublicKey != ""
		}
	case model.ProviderSquare:
		var creds SquareCredentials
		if err := json.Unmarshal(raw, &creds); err == nil {
			presence.HasAccessToken = creds.AccessToken != ""
			presence.HasLocationID = creds.LocationID != ""
		}
	}
	return presence
}
