package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrOrderNotFound is returned when an order is not found.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPaymentNotFound is returned when no payment exists for an order.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrRestaurantNotFound is returned when a restaurant is not found.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrRestaurantInactive is returned when the restaurant is not active.
	ErrRestaurantInactive = errors.New("restaurant is not active")
	// ErrPaymentNotConfigured is returned when no usable payment config exists,
	// including the case where the stored credentials cannot be decrypted.
	ErrPaymentNotConfigured = errors.New("payment not configured")
	// ErrUnsupportedProvider is returned for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported payment provider")
	// ErrInvalidCredentials is returned when provider credentials fail shape validation.
	ErrInvalidCredentials = errors.New("invalid provider credentials")
	// ErrVerificationFailed is returned when a webhook signature does not verify.
	ErrVerificationFailed = errors.New("webhook signature verification failed")
	// ErrMalformedPayload is returned for structurally unparseable webhook
	// bodies, the only case answered with HTTP 400.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrOrderNotPayable is returned when a checkout session is requested for an
	// order that is already paid, completed or cancelled.
	ErrOrderNotPayable = errors.New("order is not payable")
	// ErrTransitionNotAllowed is returned when the requested order status edge
	// does not exist in the transition table.
	ErrTransitionNotAllowed = errors.New("order status transition not permitted")
	// ErrStaleTransition is returned when the order already moved to or past the
	// requested status, typically due to out-of-order delivery.
	ErrStaleTransition = errors.New("order status already at or past target")
	// ErrPaymentNotRefundable is returned when a refund is requested for a
	// payment that is not COMPLETED.
	ErrPaymentNotRefundable = errors.New("payment is not refundable")
	// ErrInvalidAmount is returned when amount is invalid.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Provider-internal error
// text never reaches callers; anything unmapped collapses to a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "ORDER_NOT_FOUND")
	case errors.Is(err, ErrPaymentNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "PAYMENT_NOT_FOUND")
	case errors.Is(err, ErrRestaurantNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "RESTAURANT_NOT_FOUND")
	case errors.Is(err, ErrRestaurantInactive):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "RESTAURANT_INACTIVE")
	case errors.Is(err, ErrPaymentNotConfigured):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "PAYMENT_NOT_CONFIGURED")
	case errors.Is(err, ErrUnsupportedProvider):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "UNSUPPORTED_PROVIDER")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrVerificationFailed):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VERIFICATION_FAILED")
	case errors.Is(err, ErrMalformedPayload):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "MALFORMED_PAYLOAD")
	case errors.Is(err, ErrOrderNotPayable):
		return NewHTTPError(http.StatusConflict, err.Error(), "ORDER_NOT_PAYABLE")
	case errors.Is(err, ErrTransitionNotAllowed):
		return NewHTTPError(http.StatusConflict, err.Error(), "TRANSITION_NOT_PERMITTED")
	case errors.Is(err, ErrStaleTransition):
		return NewHTTPError(http.StatusConflict, err.Error(), "STALE_TRANSITION")
	case errors.Is(err, ErrPaymentNotRefundable):
		return NewHTTPError(http.StatusConflict, err.Error(), "PAYMENT_NOT_REFUNDABLE")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_AMOUNT")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
