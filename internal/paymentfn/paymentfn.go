// Package paymentfn serves the two payment functions the ticket checkout
// calls: create-order and verify-payment.
package paymentfn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

type PaymentAPI interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	VerifyPayment(req models.VerifyPaymentRequest) models.PaymentVerification
}

type Handler struct {
	payments PaymentAPI
}

func NewHandler(payments PaymentAPI) *Handler {
	return &Handler{payments: payments}
}

// CreateOrder - Open a gateway order for a ticket checkout
func (h *Handler) CreateOrder(c echo.Context) error {
	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	order, err := h.payments.CreateOrder(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid amount, currency or receipt"})
		case errors.Is(err, status.ErrFailedPayment):
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "Payment gateway rejected the order"})
		case errors.Is(err, status.ErrTransient):
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Payment gateway unavailable, try again"})
		default:
			slog.Error("h.payments.CreateOrder()", "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create order"})
		}
	}

	return c.JSON(http.StatusOK, order)
}

// VerifyPayment - Check the gateway signature of a completed payment
func (h *Handler) VerifyPayment(c echo.Context) error {
	var req models.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "order_id, payment_id and signature are required"})
	}

	v := h.payments.VerifyPayment(req)
	if !v.Verified {
		return c.JSON(http.StatusBadRequest, v)
	}
	return c.JSON(http.StatusOK, v)
}

// Options carries the middleware the server is built with. Nil limiters are
// skipped.
type Options struct {
	AllowOrigins []string
	RateLimit    echo.MiddlewareFunc
	AntiBot      echo.MiddlewareFunc
}

// NewServer wires the handler into an echo instance.
func NewServer(h *Handler, opts Options) *echo.Echo {
	e := echo.New()

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.AllowOrigins,
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	fns := e.Group("")
	if opts.AntiBot != nil {
		fns.Use(opts.AntiBot)
	}
	if opts.RateLimit != nil {
		fns.Use(opts.RateLimit)
	}
	fns.POST("/create-order", h.CreateOrder)
	fns.POST("/verify-payment", h.VerifyPayment)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return e
}
