package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tablepay/internal/cache"
	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/provider"
	"tablepay/internal/repository"
	"tablepay/internal/vault"
)

const completedEventCacheTTL = 24 * time.Hour

// WebhookAck reports how an inbound webhook was handled. Every terminal
// outcome, including a rejected signature, is acknowledged with HTTP 200 so
// the provider stops retrying. A nil ack with a non-nil error means the
// ledger row is still PROCESSING and the provider's retry should run again.
type WebhookAck struct {
	EventID   string
	Duplicate bool
	Outcome   model.WebhookEventStatus
}

// WebhookService ingests provider webhooks idempotently.
type WebhookService interface {
	ProcessWebhook(ctx context.Context, name model.ProviderName, rawBody []byte, header http.Header) (*WebhookAck, error)
}

type webhookService struct {
	events      repository.WebhookEventRepository
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	resolver    *providerResolver
	updater     StatusUpdater
	cache       *cache.Client
	logger      *zap.Logger
}

// NewWebhookService creates a new webhook ingestion service.
func NewWebhookService(
	events repository.WebhookEventRepository,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	configRepo repository.PaymentConfigRepository,
	credVault *vault.Vault,
	builder provider.Builder,
	updater StatusUpdater,
	cache *cache.Client,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		events:      events,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		resolver:    &providerResolver{configRepo: configRepo, vault: credVault, builder: builder},
		updater:     updater,
		cache:       cache,
		logger:      logger,
	}
}

// ProcessWebhook runs the full ingestion pipeline: ledger insert, tenant
// resolution, signature verification, event handling, outcome application.
// A returned error means the ledger row is still PROCESSING and the delivery
// should be retried by the provider.
func (s *webhookService) ProcessWebhook(ctx context.Context, name model.ProviderName, rawBody []byte, header http.Header) (*WebhookAck, error) {
	if !name.Valid() {
		return nil, errors.ErrUnsupportedProvider
	}

	eventID, err := provider.ExtractEventID(name, rawBody)
	if err != nil {
		// Structurally unparseable; the only case the handler answers 400.
		return nil, errors.ErrMalformedPayload
	}

	log := s.logger.With(
		zap.String("provider", string(name)),
		zap.String("event_id", eventID),
	)

	// Fast path for replays of already-completed events.
	if cached, _ := s.cache.Get(ctx, completedEventCacheKey(name, eventID)); cached != nil {
		log.Info("webhook replay short-circuited by cache")
		return &WebhookAck{EventID: eventID, Duplicate: true, Outcome: model.WebhookEventCompleted}, nil
	}

	event := &model.WebhookEvent{
		Provider:        name,
		ProviderEventID: eventID,
		EventType:       extractEventType(rawBody),
		PayloadJSON:     string(rawBody),
		Status:          model.WebhookEventProcessing,
	}
	created, stored, err := s.events.CreateIfNotExists(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("ledger insert: %w", err)
	}
	if !created {
		switch stored.Status {
		case model.WebhookEventCompleted:
			log.Info("duplicate webhook ignored")
			return &WebhookAck{EventID: eventID, Duplicate: true, Outcome: model.WebhookEventCompleted}, nil
		case model.WebhookEventVerificationFailed, model.WebhookEventNoConfig:
			// Non-retryable outcomes already recorded; acknowledge again.
			return &WebhookAck{EventID: eventID, Duplicate: true, Outcome: stored.Status}, nil
		}
		// Still PROCESSING: a previous attempt died mid-flight, retry it.
		log.Info("retrying webhook left in processing")
	}

	attribution, err := provider.ExtractAttribution(name, rawBody)
	if err != nil {
		// Square payment and refund events carry the provider order id but no
		// session metadata; the stored payment row bridges the gap.
		attribution = s.attributeByProviderPayment(ctx, name, rawBody)
	}
	if attribution == nil {
		// Retrying will never produce better metadata.
		s.markEvent(ctx, stored.ID, model.WebhookEventNoConfig, "no order attribution in payload")
		log.Warn("webhook carries no order attribution")
		return &WebhookAck{EventID: eventID, Outcome: model.WebhookEventNoConfig}, nil
	}

	restaurantID := attribution.RestaurantID
	if restaurantID == uuid.Nil {
		// Legacy sessions embedded the order id only; resolve the tenant
		// through the order.
		order, err := s.orderRepo.FindByID(ctx, attribution.OrderID)
		if err != nil {
			s.markEvent(ctx, stored.ID, model.WebhookEventNoConfig, "order not found for legacy attribution")
			return &WebhookAck{EventID: eventID, Outcome: model.WebhookEventNoConfig}, nil
		}
		restaurantID = order.RestaurantID
	}

	prov, _, err := s.resolver.resolve(ctx, restaurantID, name)
	if err != nil {
		s.markEvent(ctx, stored.ID, model.WebhookEventNoConfig, "no usable payment config")
		log.Warn("webhook for restaurant without usable config",
			zap.String("restaurant_id", restaurantID.String()))
		return &WebhookAck{EventID: eventID, Outcome: model.WebhookEventNoConfig}, nil
	}

	if err := prov.VerifyWebhook(rawBody, header); err != nil {
		// Never mutates payment or order state.
		s.markEvent(ctx, stored.ID, model.WebhookEventVerificationFailed, "signature verification failed")
		log.Warn("webhook signature verification failed")
		return &WebhookAck{EventID: eventID, Outcome: model.WebhookEventVerificationFailed}, nil
	}

	outcome, err := prov.HandleWebhookEvent(rawBody)
	if err != nil {
		// Ledger row stays PROCESSING; the provider's retry will come back.
		log.Error("webhook event handling failed", zap.Error(err))
		return nil, fmt.Errorf("handle webhook event: %w", err)
	}

	if outcome.Actionable {
		payment, err := s.paymentRepo.FindLatestByOrderID(ctx, attribution.OrderID)
		if err != nil {
			// Nothing to apply the outcome to; acknowledged so the provider
			// stops retrying a delivery that can never match a payment.
			s.markEvent(ctx, stored.ID, model.WebhookEventCompleted, "no payment recorded for order")
			log.Warn("actionable webhook without matching payment",
				zap.String("order_id", attribution.OrderID.String()))
			return &WebhookAck{EventID: eventID, Outcome: model.WebhookEventCompleted}, nil
		}
		if err := s.updater.ApplyOutcome(ctx, payment, outcome.Status, "webhook "+outcome.EventType); err != nil {
			log.Error("webhook outcome application failed", zap.Error(err))
			return nil, err
		}
	}

	s.markEvent(ctx, stored.ID, model.WebhookEventCompleted, "")
	_ = s.cache.Set(ctx, completedEventCacheKey(name, eventID), []byte("1"), completedEventCacheTTL)

	log.Info("webhook processed",
		zap.String("event_type", outcome.EventType),
		zap.Bool("actionable", outcome.Actionable),
	)
	return &WebhookAck{EventID: eventID, Outcome: model.WebhookEventCompleted}, nil
}

// attributeByProviderPayment resolves attribution through the payment row
// holding the payload's provider-side payment reference. Returns nil when the
// payload carries no reference or no payment matches it.
func (s *webhookService) attributeByProviderPayment(ctx context.Context, name model.ProviderName, rawBody []byte) *provider.Attribution {
	ref := provider.ExtractProviderPaymentID(name, rawBody)
	if ref == "" {
		return nil
	}
	payment, err := s.paymentRepo.FindByProviderPaymentID(ctx, name, ref)
	if err != nil {
		return nil
	}
	return &provider.Attribution{OrderID: payment.OrderID, RestaurantID: payment.RestaurantID}
}

func (s *webhookService) markEvent(ctx context.Context, id uint, status model.WebhookEventStatus, detail string) {
	if err := s.events.UpdateStatus(ctx, id, status, detail); err != nil {
		s.logger.Error("ledger status update failed", zap.Uint("event_id", id), zap.Error(err))
	}
}

func completedEventCacheKey(name model.ProviderName, eventID string) string {
	return "webhook:" + string(name) + ":" + eventID
}

// extractEventType reads the shared "type" field both providers carry. Best
// effort; the ledger tolerates an empty type.
func extractEventType(rawBody []byte) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return ""
	}
	return envelope.Type
}
