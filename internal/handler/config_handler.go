package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"tablepay/internal/auth"
	"tablepay/internal/errors"
	"tablepay/internal/model"
	"tablepay/internal/service"
)

// ConfigHandler handles owner-only payment config administration.
type ConfigHandler struct {
	configService service.ConfigService
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(configService service.ConfigService) *ConfigHandler {
	return &ConfigHandler{configService: configService}
}

// SaveConfigRequest represents a config save request. Credentials shape
// varies by provider: Stripe carries secretKey/publicKey/webhookSecret,
// Square carries accessToken/locationId/webhookSecret.
type SaveConfigRequest struct {
	Provider    string          `json:"provider" validate:"required,oneof=stripe square"`
	Credentials json.RawMessage `json:"credentials" validate:"required"`
	IsActive    *bool           `json:"isActive,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Save godoc
// @Summary Save provider credentials for the restaurant
// @Description Credentials are encrypted at rest and never echoed back.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SaveConfigRequest true "Config data"
// @Success 200 {object} service.ConfigView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/payments/config [put]
func (h *ConfigHandler) Save(c echo.Context) error {
	restaurantID, ok := auth.RestaurantID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing tenant context")
	}

	var req SaveConfigRequest
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

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	view, err := h.configService.Save(c.Request().Context(), restaurantID, model.ProviderName(req.Provider), req.Credentials, active, req.Metadata)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, view)
}

// List godoc
// @Summary List payment configs for the restaurant
// @Description Returns provider, active flag and boolean presence flags only; decrypted values are never included.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.ConfigView
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/payments/config [get]
func (h *ConfigHandler) List(c echo.Context) error {
	restaurantID, ok := auth.RestaurantID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing tenant context")
	}

	views, err := h.configService.List(c.Request().Context(), restaurantID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, views)
}

// TestConfigRequest represents a connectivity test with unsaved credentials.
type TestConfigRequest struct {
	Provider    string          `json:"provider" validate:"required,oneof=stripe square"`
	Credentials json.RawMessage `json:"credentials" validate:"required"`
}

// TestConfigResponse represents a connectivity test result. Provider error
// text is reduced to a generic message so credential fragments never leak.
type TestConfigResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Test godoc
// @Summary Test provider connectivity with unsaved credentials
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TestConfigRequest true "Credentials to test"
// @Success 200 {object} TestConfigResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/payments/config/test [post]
func (h *ConfigHandler) Test(c echo.Context) error {
	if _, ok := auth.RestaurantID(c); !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing tenant context")
	}

	var req TestConfigRequest
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

	if err := h.configService.TestConnection(c.Request().Context(), model.ProviderName(req.Provider), req.Credentials); err != nil {
		if errors.Is(err, errors.ErrUnsupportedProvider) || errors.Is(err, errors.ErrInvalidCredentials) {
			httpErr := errors.MapErrorToHTTP(err)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		return c.JSON(http.StatusOK, TestConfigResponse{
			Success: false,
			Error:   "provider connection failed",
		})
	}
	return c.JSON(http.StatusOK, TestConfigResponse{Success: true})
}
