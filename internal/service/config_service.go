package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/provider"
	"tablepay/internal/repository"
	"tablepay/internal/vault"
)

// ConfigView is what the admin surface sees: provider, flags and credential
// presence. Stored secret values never appear in any response.
type ConfigView struct {
	Provider model.ProviderName          `json:"provider"`
	Active   bool                        `json:"active"`
	Presence provider.CredentialPresence `json:"presence"`
	Metadata json.RawMessage             `json:"metadata,omitempty"`
}

// ConfigService manages provider credentials for a restaurant.
type ConfigService interface {
	// Save validates, encrypts and upserts the credentials for (restaurant,
	// provider). The webhook secret is split out and stored separately.
	Save(ctx context.Context, restaurantID uuid.UUID, name model.ProviderName, credentialsJSON json.RawMessage, active bool, metadata json.RawMessage) (*ConfigView, error)
	// List returns presence-only views of all configs for the restaurant.
	List(ctx context.Context, restaurantID uuid.UUID) ([]ConfigView, error)
	// TestConnection validates raw, unsaved credentials against the provider.
	// Nothing is persisted and the credentials are never logged.
	TestConnection(ctx context.Context, name model.ProviderName, credentialsJSON json.RawMessage) error
}

type configService struct {
	configRepo repository.PaymentConfigRepository
	vault      *vault.Vault
	builder    provider.Builder
	logger     *zap.Logger
}

// NewConfigService creates a new config service.
func NewConfigService(
	configRepo repository.PaymentConfigRepository,
	credVault *vault.Vault,
	builder provider.Builder,
	logger *zap.Logger,
) ConfigService {
	return &configService{
		configRepo: configRepo,
		vault:      credVault,
		builder:    builder,
		logger:     logger,
	}
}

// Save encrypts and upserts a payment config.
func (s *configService) Save(ctx context.Context, restaurantID uuid.UUID, name model.ProviderName, credentialsJSON json.RawMessage, active bool, metadata json.RawMessage) (*ConfigView, error) {
	if !name.Valid() {
		return nil, errors.ErrUnsupportedProvider
	}

	webhookSecret, strippedCredentials, err := splitWebhookSecret(name, credentialsJSON)
	if err != nil {
		return nil, err
	}

	credentialsEnc, err := s.vault.Encrypt(strippedCredentials)
	if err != nil {
		return nil, fmt.Errorf("encrypt credentials: %w", err)
	}
	var webhookSecretEnc []byte
	if webhookSecret != "" {
		webhookSecretEnc, err = s.vault.Encrypt([]byte(webhookSecret))
		if err != nil {
			return nil, fmt.Errorf("encrypt webhook secret: %w", err)
		}
	}

	config := &model.PaymentConfig{
		RestaurantID:     restaurantID,
		Provider:         name,
		CredentialsEnc:   credentialsEnc,
		WebhookSecretEnc: webhookSecretEnc,
		Active:           active,
		MetadataJSON:     string(metadata),
	}
	if err := s.configRepo.Upsert(ctx, config); err != nil {
		return nil, fmt.Errorf("save payment config: %w", err)
	}

	s.logger.Info("payment config saved",
		zap.String("restaurant_id", restaurantID.String()),
		zap.String("provider", string(name)),
		zap.Bool("active", active),
	)
	return s.view(config)
}

// List returns presence views for every stored config.
func (s *configService) List(ctx context.Context, restaurantID uuid.UUID) ([]ConfigView, error) {
	configs, err := s.configRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list payment configs: %w", err)
	}

	views := make([]ConfigView, 0, len(configs))
	for i := range configs {
		view, err := s.view(&configs[i])
		if err != nil {
			// An undecryptable config is unusable but still listed, with
			// empty presence, so the owner can see it needs re-saving.
			views = append(views, ConfigView{
				Provider: configs[i].Provider,
				Active:   configs[i].Active,
			})
			continue
		}
		views = append(views, *view)
	}
	return views, nil
}

// TestConnection builds a provider from unsaved credentials and runs its
// cheap read-only check.
func (s *configService) TestConnection(ctx context.Context, name model.ProviderName, credentialsJSON json.RawMessage) error {
	if !name.Valid() {
		return errors.ErrUnsupportedProvider
	}
	prov, err := s.builder.Create(name, credentialsJSON, "")
	if err != nil {
		return err
	}
	return prov.TestConnection(ctx)
}

func (s *configService) view(config *model.PaymentConfig) (*ConfigView, error) {
	credentialsJSON, err := s.vault.Decrypt(config.CredentialsEnc)
	if err != nil {
		return nil, errors.ErrPaymentNotConfigured
	}
	view := &ConfigView{
		Provider: config.Provider,
		Active:   config.Active,
		Presence: provider.Presence(config.Provider, credentialsJSON, len(config.WebhookSecretEnc) > 0),
	}
	if config.MetadataJSON != "" {
		view.Metadata = json.RawMessage(config.MetadataJSON)
	}
	return view, nil
}

// splitWebhookSecret pulls the webhook secret out of the submitted credential
// JSON so it can be stored separately, and returns the remaining credential
// document re-marshaled without it.
func splitWebhookSecret(name model.ProviderName, credentialsJSON json.RawMessage) (string, []byte, error) {
	switch name {
	case model.ProviderStripe:
		creds, err := provider.ParseStripeCredentials(credentialsJSON)
		if err != nil {
			return "", nil, err
		}
		secret := creds.WebhookSecret
		creds.WebhookSecret = ""
		stripped, err := json.Marshal(creds)
		if err != nil {
			return "", nil, fmt.Errorf("marshal credentials: %w", err)
		}
		return secret, stripped, nil
	case model.ProviderSquare:
		creds, err := provider.ParseSquareCredentials(credentialsJSON)
		if err != nil {
			return "", nil, err
		}
		secret := creds.WebhookSecret
		creds.WebhookSecret = ""
		stripped, err := json.Marshal(creds)
		if err != nil {
			return "", nil, fmt.Errorf("marshal credentials: %w", err)
		}
		return secret, stripped, nil
	default:
		return "", nil, errors.ErrUnsupportedProvider
	}
}
