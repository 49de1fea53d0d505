package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/service"
)

// WebhookHandler handles provider webhook deliveries.
type WebhookHandler struct {
	webhookService service.WebhookService
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// WebhookResponse represents a webhook acknowledgement.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
}

// Receive godoc
// @Summary Receive a provider webhook
// @Description Accepts raw webhook payloads. Returns 200 on every terminal outcome, including verification failures recorded internally; 400 only for structurally unparseable bodies.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Provider name (stripe or square)"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /webhooks/{provider} [post]
func (h *WebhookHandler) Receive(c echo.Context) error {
	// The signature is computed over the exact bytes the provider sent;
	// the body is read raw and never re-serialized.
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "unreadable request body",
			Code:  "MALFORMED_PAYLOAD",
		})
	}

	name := model.ProviderName(c.Param("provider"))
	ack, err := h.webhookService.ProcessWebhook(c.Request().Context(), name, rawBody, c.Request().Header)
	if err != nil {
		if errors.Is(err, errors.ErrMalformedPayload) || errors.Is(err, errors.ErrUnsupportedProvider) {
			httpErr := errors.MapErrorToHTTP(err)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		// Ledger row stays PROCESSING; a 500 tells the provider to retry.
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "webhook processing failed",
			Code:  "WEBHOOK_RETRY",
		})
	}

	return c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		Duplicate: ack.Duplicate,
		Outcome:   string(ack.Outcome),
	})
}
