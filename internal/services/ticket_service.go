package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/qr"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/monitoring"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/utils"
)

// TicketService issues tickets once a registration is settled, either for
// free or against a verified payment.
type TicketService struct {
	registrations RegistrationStore
	events        EventStore
	payments      *PaymentService
	monitor       *monitoring.Monitor
	qrSize        int
	now           func() time.Time
}

func NewTicketService(registrations RegistrationStore, events EventStore, payments *PaymentService, monitor *monitoring.Monitor, qrSize int) *TicketService {
	return &TicketService{
		registrations: registrations,
		events:        events,
		payments:      payments,
		monitor:       monitor,
		qrSize:        qrSize,
		now:           time.Now,
	}
}

// Register issues a ticket for a free event.
func (s *TicketService) Register(ctx context.Context, req models.RegisterRequest) (*models.Ticket, error) {
	event, err := s.openEvent(ctx, &req)
	if err != nil {
		return nil, err
	}
	if !event.IsFree() {
		return nil, fmt.Errorf("register: %w", status.ErrPaymentRequired)
	}

	return s.issue(ctx, req, "", "free")
}

// RegisterPaid issues a ticket for a paid event after checking the gateway
// signature over the order and payment ids. A payment settles one
// registration; replaying it fails with status.ErrAlreadyRegistered.
func (s *TicketService) RegisterPaid(ctx context.Context, req models.PaidRegisterRequest) (*models.Ticket, error) {
	if _, err := s.openEvent(ctx, &req.RegisterRequest); err != nil {
		return nil, err
	}

	v := s.payments.VerifyPayment(models.VerifyPaymentRequest{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if !v.Verified {
		return nil, fmt.Errorf("register paid: %w", status.ErrSignatureMismatch)
	}

	return s.issue(ctx, req.RegisterRequest, req.PaymentID, "paid")
}

// TicketQR re-renders the QR image of a ticket for its holder.
func (s *TicketService) TicketQR(ctx context.Context, ticketCode, requesterID string) ([]byte, error) {
	reg, err := s.registrations.FindRegistrationByTicket(ctx, ticketCode)
	if err != nil {
		return nil, fmt.Errorf("ticket qr: %w", err)
	}
	if requesterID == "" || reg.UserID != requesterID {
		return nil, fmt.Errorf("ticket qr: %w", status.ErrForbidden)
	}

	return qr.EncodePayload(payloadFor(reg), s.qrSize)
}

func (s *TicketService) openEvent(ctx context.Context, req *models.RegisterRequest) (*models.Event, error) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if req.EventID == "" || req.Name == "" {
		return nil, fmt.Errorf("register: event and name are required: %w", status.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("register: email: %w", status.ErrInvalidInput)
	}

	event, err := s.events.FindEvent(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return nil, fmt.Errorf("register: event %s: %w", req.EventID, status.ErrNotFound)
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	if event.Status != models.EventStatusPublished {
		return nil, fmt.Errorf("register: %w", status.ErrEventClosed)
	}
	return event, nil
}

func (s *TicketService) issue(ctx context.Context, req models.RegisterRequest, paymentID, kind string) (*models.Ticket, error) {
	userID := req.AccountID
	if userID == "" {
		userID = utils.NewGuestUserID()
	}

	reg := &models.Registration{
		EventID:      req.EventID,
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		Organization: strings.TrimSpace(req.Organization),
		TicketCode:   utils.NewTicketCode(),
		PaymentID:    paymentID,
	}
	if err := s.registrations.CreateRegistration(ctx, reg); err != nil {
		if !errors.Is(err, status.ErrAlreadyRegistered) {
			slog.Error("s.registrations.CreateRegistration()", "event_id", req.EventID, "error", err)
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = s.now()
	}

	payload := payloadFor(reg)
	png, err := qr.EncodePayload(payload, s.qrSize)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.monitor.TrackTicketIssued(kind)
	slog.Info("Ticket issued", "event_id", reg.EventID, "user_id", reg.UserID, "kind", kind)

	return &models.Ticket{
		Registration: reg,
		Payload:      payload,
		QRCode:       png,
	}, nil
}

func payloadFor(reg *models.Registration) models.TicketPayload {
	return models.TicketPayload{
		EventID:  reg.EventID,
		UserID:   reg.UserID,
		Ticket:   reg.TicketCode,
		IssuedAt: reg.CreatedAt.Unix(),
	}
}
