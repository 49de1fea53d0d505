package service

import (
	"context"

	"github.com/google/uuid"

	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/provider"
	"tablepay/internal/repository"
	"tablepay/internal/vault"
)

// providerResolver loads a restaurant's active config, decrypts it and builds
// the provider instance. Decrypted credential material lives only for the
// duration of the call.
type providerResolver struct {
	configRepo repository.PaymentConfigRepository
	vault      *vault.Vault
	builder    provider.Builder
}

// resolve builds a configured provider for the restaurant. Any decryption
// failure surfaces as ErrPaymentNotConfigured; the blob contents are never
// part of the error.
func (r *providerResolver) resolve(ctx context.Context, restaurantID uuid.UUID, name model.ProviderName) (provider.Provider, *model.PaymentConfig, error) {
	config, err := r.configRepo.FindActive(ctx, restaurantID, name)
	if err != nil {
		return nil, nil, errors.ErrPaymentNotConfigured
	}
	return r.build(config)
}

// resolveAny builds a provider from the restaurant's single active config
// when the caller does not name one.
func (r *providerResolver) resolveAny(ctx context.Context, restaurantID uuid.UUID) (provider.Provider, *model.PaymentConfig, error) {
	configs, err := r.configRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, nil, errors.ErrPaymentNotConfigured
	}
	for i := range configs {
		if configs[i].Active {
			return r.build(&configs[i])
		}
	}
	return nil, nil, errors.ErrPaymentNotConfigured
}

func (r *providerResolver) build(config *model.PaymentConfig) (provider.Provider, *model.PaymentConfig, error) {
	credentialsJSON, err := r.vault.Decrypt(config.CredentialsEnc)
	if err != nil {
		return nil, nil, errors.ErrPaymentNotConfigured
	}
	webhookSecret := ""
	if len(config.WebhookSecretEnc) > 0 {
		secret, err := r.vault.Decrypt(config.WebhookSecretEnc)
		if err != nil {
			return nil, nil, errors.ErrPaymentNotConfigured
		}
		webhookSecret = string(secret)
	}
	p, err := r.builder.Create(config.Provider, credentialsJSON, webhookSecret)
	if err != nil {
		return nil, nil, err
	}
	return p, config, nil
}
