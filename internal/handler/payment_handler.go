package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"tablepay/internal/auth"
	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/service"
)

// PaymentHandler handles checkout intent, reconciliation poll and refund
// endpoints.
type PaymentHandler struct {
	paymentService   service.PaymentService
	reconcileService service.ReconcileService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentService service.PaymentService, reconcileService service.ReconcileService) *PaymentHandler {
	return &PaymentHandler{
		paymentService:   paymentService,
		reconcileService: reconcileService,
	}
}

// CreateIntentRequest represents a checkout intent request.
type CreateIntentRequest struct {
	OrderID  string `json:"order_id" validate:"required,uuid"`
	Provider string `json:"provider" validate:"omitempty,oneof=stripe square"`
}

// IntentResponse represents a created checkout session.
type IntentResponse struct {
	PaymentID   string `json:"payment_id"`
	Provider    string `json:"provider"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateIntent godoc
// @Summary Create a checkout session for an order
// @Tags payments
// @Accept json
// @Produce json
// @Param request body CreateIntentRequest true "Intent data"
// @Success 200 {object} IntentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /payments/intent [post]
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	var req CreateIntentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid order_id",
			Code:  "INVALID_UUID",
		})
	}

	payment, err := h.paymentService.CreateIntent(c.Request().Context(), orderID, model.ProviderName(req.Provider))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, IntentResponse{
		PaymentID:   payment.ID.String(),
		Provider:    string(payment.Provider),
		Status:      string(payment.Status),
		CheckoutURL: payment.CheckoutURL,
	})
}

// Poll godoc
// @Summary Reconcile an order's payment state with the provider
// @Description Pull-based fallback for missed webhooks. Polling a terminal order returns current status without side effects.
// @Tags payments
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} service.PollResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /payments/poll/{orderId} [post]
func (h *PaymentHandler) Poll(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid order id",
			Code:  "INVALID_UUID",
		})
	}

	result, err := h.reconcileService.Poll(c.Request().Context(), orderID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}

// RefundRequest represents a refund request.
type RefundRequest struct {
	Amount string `json:"amount" validate:"omitempty"`
}

// RefundResponse represents a completed refund.
type RefundResponse struct {
	RefundID string `json:"refund_id"`
	Amount   string `json:"amount"`
}

// Refund godoc
// @Summary Refund a completed payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param request body RefundRequest false "Optional partial amount"
// @Success 200 {object} RefundResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/payments/{paymentId}/refund [post]
func (h *PaymentHandler) Refund(c echo.Context) error {
	restaurantID, ok := auth.RestaurantID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing tenant context")
	}

	paymentID, err := uuid.Parse(c.Param("paymentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid payment id",
			Code:  "INVALID_UUID",
		})
	}

	var req RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}

	var amount *decimal.Decimal
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid amount",
				Code:  "INVALID_AMOUNT",
			})
		}
		amount = &parsed
	}

	result, err := h.paymentService.Refund(c.Request().Context(), restaurantID, paymentID, amount)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, RefundResponse{
		RefundID: result.RefundID,
		Amount:   result.Amount.StringFixed(2),
	})
}
