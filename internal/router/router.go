package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	jwtv4 "github.com/golang-jwt/jwt/v4"

	"tablepay/internal/auth"
	"tablepay/internal/config"
	"tablepay/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	webhookHandler *handler.WebhookHandler,
	paymentHandler *handler.PaymentHandler,
	configHandler *handler.ConfigHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Provider callbacks live outside the API group; the raw body must reach
	// the handler untouched for signature verification.
	e.POST("/webhooks/:provider", webhookHandler.Receive)

	api := e.Group("/api")

	// Checkout-facing routes
	api.POST("/payments/intent", paymentHandler.CreateIntent)
	api.POST("/payments/poll/:orderId", paymentHandler.Poll)

	// Owner-only admin routes (require JWT with owner role)
	admin := api.Group("/admin", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwtv4.Claims {
			return new(auth.Claims)
		},
	}), auth.RequireOwner)

	admin.PUT("/payments/config", configHandler.Save)
	admin.GET("/payments/config", configHandler.List)
	admin.POST("/payments/config/test", configHandler.Test)
	admin.POST("/payments/:paymentId/refund", paymentHandler.Refund)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
