package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/services/gateway"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/monitoring"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/utils"
	"github.com/shopspring/decimal"
)

const defaultCurrency = "INR"

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type OrderCreator interface {
	CreateOrder(ctx context.Context, r gateway.OrderRequest) (*gateway.OrderReply, error)
}

type PaymentService struct {
	gateway   OrderCreator
	keySecret string
	maxAmount decimal.Decimal
	monitor   *monitoring.Monitor
}

func NewPaymentService(gw OrderCreator, keySecret string, maxAmount decimal.Decimal, monitor *monitoring.Monitor) *PaymentService {
	return &PaymentService{
		gateway:   gw,
		keySecret: keySecret,
		maxAmount: maxAmount,
		monitor:   monitor,
	}
}

// CreateOrder validates an amount given in major units and opens an order
// for it with the gateway.
func (s *PaymentService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, fmt.Errorf("create order: amount must be positive with at most two decimals: %w", status.ErrInvalidInput)
	}
	if s.maxAmount.IsPositive() && req.Amount.GreaterThan(s.maxAmount) {
		return nil, fmt.Errorf("create order: amount above %s: %w", s.maxAmount, status.ErrInvalidInput)
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return nil, fmt.Errorf("create order: currency %q: %w", req.Currency, status.ErrInvalidInput)
	}

	receipt := strings.TrimSpace(req.Receipt)
	if receipt == "" {
		code, err := utils.GenerateCode(8)
		if err != nil {
			return nil, fmt.Errorf("create order: receipt: %w", err)
		}
		receipt = "rcpt_" + code
	}
	if len(receipt) > 40 {
		return nil, fmt.Errorf("create order: receipt longer than 40 characters: %w", status.ErrInvalidInput)
	}

	reply, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   req.Amount.Shift(2).IntPart(),
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		slog.Error("s.gateway.CreateOrder()", "receipt", receipt, "error", err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	slog.Info("Payment order created", "order_id", reply.ID, "amount", req.Amount.StringFixed(2), "currency", currency)

	return &models.Order{
		ID:       reply.ID,
		Amount:   decimal.New(reply.Amount, -2),
		Currency: reply.Currency,
		Status:   reply.Status,
		Receipt:  reply.Receipt,
	}, nil
}

// VerifyPayment recomputes the checkout signature. A mismatch is a result,
// not an error.
func (s *PaymentService) VerifyPayment(req models.VerifyPaymentRequest) models.PaymentVerification {
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		s.monitor.TrackPaymentVerification(false)
		return models.PaymentVerification{Verified: false, Message: "order_id, payment_id and signature are required"}
	}

	if !gateway.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature, s.keySecret) {
		s.monitor.TrackPaymentVerification(false)
		slog.Warn("Payment signature mismatch", "order_id", req.OrderID, "payment_id", req.PaymentID)
		return models.PaymentVerification{
			Verified:  false,
			OrderID:   req.OrderID,
			PaymentID: req.PaymentID,
			Message:   "Payment verification failed",
		}
	}

	s.monitor.TrackPaymentVerification(true)
	return models.PaymentVerification{
		Verified:  true,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Message:   "Payment verified",
	}
}
