package provider

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"tablepay/internal/model"
)

// Attribution identifies the internal order and tenant a webhook belongs to.
// RestaurantID may be uuid.Nil when only the legacy order reference was
// embedded; callers then resolve the tenant through the order itself.
type Attribution struct {
	OrderID      uuid.UUID
	RestaurantID uuid.UUID
}

// ExtractEventID pulls the provider event id out of a raw webhook payload.
// This runs before any config lookup or signature verification, so it must
// not trust anything beyond the id itself.
func ExtractEventID(name model.ProviderName, rawBody []byte) (string, error) {
	switch name {
	case model.ProviderStripe:
		var envelope struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(rawBody, &envelope); err != nil {
			return "", fmt.Errorf("parse stripe payload: %w", err)
		}
		if envelope.ID == "" {
			return "", fmt.Errorf("stripe payload has no event id")
		}
		return envelope.ID, nil
	case model.ProviderSquare:
		var envelope struct {
			EventID string `json:"event_id"`
		}
		if err := json.Unmarshal(rawBody, &envelope); err != nil {
			return "", fmt.Errorf("parse square payload: %w", err)
		}
		if envelope.EventID == "" {
			return "", fmt.Errorf("square payload has no event id")
		}
		return envelope.EventID, nil
	default:
		return "", fmt.Errorf("no event id extraction for provider %q", name)
	}
}

// ExtractAttribution resolves the order and restaurant ids embedded at
// checkout-session creation. The primary contract is the metadata map; the
// remaining paths are compatibility shims for sessions created before the
// metadata contract was enforced (Stripe client_reference_id, Square order
// reference) and yield an order id only.
func ExtractAttribution(name model.ProviderName, rawBody []byte) (*Attribution, error) {
	switch name {
	case model.ProviderStripe:
		return extractStripeAttribution(rawBody)
	case model.ProviderSquare:
		return extractSquareAttribution(rawBody)
	default:
		return nil, fmt.Errorf("no attribution extraction for provider %q", name)
	}
}

func extractStripeAttribution(rawBody []byte) (*Attribution, error) {
	var envelope struct {
		Data struct {
			Object struct {
				Metadata          map[string]string `json:"metadata"`
				ClientReferenceID string            `json:"client_reference_id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("parse stripe payload: %w", err)
	}

	if attr := fromMetadata(envelope.Data.Object.Metadata); attr != nil {
		return attr, nil
	}
	// Compatibility shim: older sessions carried the order id only.
	if orderID, err := uuid.Parse(envelope.Data.Object.ClientReferenceID); err == nil {
		return &Attribution{OrderID: orderID}, nil
	}
	return nil, fmt.Errorf("stripe payload carries no order attribution")
}

func extractSquareAttribution(rawBody []byte) (*Attribution, error) {
	var envelope struct {
		Data struct {
			Object struct {
				Order struct {
					Metadata map[string]string `json:"metadata"`
				} `json:"order"`
				Payment struct {
					ReferenceID string `json:"reference_id"`
				} `json:"payment"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("parse square payload: %w", err)
	}

	if attr := fromMetadata(envelope.Data.Object.Order.Metadata); attr != nil {
		return attr, nil
	}
	// Compatibility shim: the payment's reference id held the order id.
	if orderID, err := uuid.Parse(envelope.Data.Object.Payment.ReferenceID); err == nil {
		return &Attribution{OrderID: orderID}, nil
	}
	return nil, fmt.Errorf("square payload carries no order attribution")
}

// ExtractProviderPaymentID pulls the provider-side payment reference out of a
// raw webhook payload, when one is present. Square payment and refund events
// carry only the provider order id, no session metadata, so attribution falls
// back to the stored payment row keyed by this reference. Returns "" when the
// payload carries none.
func ExtractProviderPaymentID(name model.ProviderName, rawBody []byte) string {
	switch name {
	case model.ProviderStripe:
		var envelope struct {
			Data struct {
				Object struct {
					ID string `json:"id"`
				} `json:"object"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rawBody, &envelope); err != nil {
			return ""
		}
		return envelope.Data.Object.ID
	case model.ProviderSquare:
		var envelope struct {
			Data struct {
				Object struct {
					Payment struct {
						OrderID string `json:"order_id"`
					} `json:"payment"`
					Refund struct {
						OrderID string `json:"order_id"`
					} `json:"refund"`
				} `json:"object"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rawBody, &envelope); err != nil {
			return ""
		}
		if envelope.Data.Object.Payment.OrderID != "" {
			return envelope.Data.Object.Payment.OrderID
		}
		return envelope.Data.Object.Refund.OrderID
	default:
		return ""
	}
}

func fromMetadata(metadata map[string]string) *Attribution {
	orderID, err := uuid.Parse(metadata[MetadataOrderIDKey])
	if err != nil {
		return nil
	}
	attr := &Attribution{OrderID: orderID}
	if restaurantID, err := uuid.Parse(metadata[MetadataRestaurantIDKey]); err == nil {
		attr.RestaurantID = restaurantID
	}
	return attr
}
