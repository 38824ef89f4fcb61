package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/export"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketIssuer interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Ticket, error)
	RegisterPaid(ctx context.Context, req models.PaidRegisterRequest) (*models.Ticket, error)
	TicketQR(ctx context.Context, ticketCode, requesterID string) ([]byte, error)
}

type RegistrationLister interface {
	ListRegistrations(ctx context.Context, eventID string) ([]models.Registration, error)
}

type RegistrationHandler struct {
	access        *Access
	tickets       TicketIssuer
	registrations RegistrationLister
	now           func() time.Time
}

func NewRegistrationHandler(access *Access, tickets TicketIssuer, registrations RegistrationLister) *RegistrationHandler {
	return &RegistrationHandler{
		access:        access,
		tickets:       tickets,
		registrations: registrations,
		now:           time.Now,
	}
}

// Register - Register for a free event and receive a ticket
func (h *RegistrationHandler) Register(e *core.RequestEvent) error {
	var req models.RegisterRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.EventID = e.Request.PathValue("eventId")
	if e.Auth != nil {
		req.AccountID = e.Auth.Id
	}

	ticket, err := h.tickets.Register(e.Request.Context(), req)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusCreated, ticket)
}

// RegisterPaid - Register for a paid event after checkout
func (h *RegistrationHandler) RegisterPaid(e *core.RequestEvent) error {
	var req models.PaidRegisterRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.EventID = e.Request.PathValue("eventId")
	if e.Auth != nil {
		req.AccountID = e.Auth.Id
	}

	ticket, err := h.tickets.RegisterPaid(e.Request.Context(), req)
	if err != nil {
		return respondError(e, err)
	}
	return e.JSON(http.StatusCreated, ticket)
}

// ListRegistrations - Attendee list for the check-in desk
func (h *RegistrationHandler) ListRegistrations(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	if _, err := h.access.Operator(e, eventID, ""); err != nil {
		return respondError(e, err)
	}

	regs, err := h.registrations.ListRegistrations(e.Request.Context(), eventID)
	if err != nil {
		slog.Error("h.registrations.ListRegistrations()", "event_id", eventID, "error", err)
		return respondError(e, err)
	}

	checkedIn := 0
	for _, r := range regs {
		if r.CheckedIn {
			checkedIn++
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id":      eventID,
		"total":         len(regs),
		"checked_in":    checkedIn,
		"registrations": regs,
	})
}

// ExportRegistrations - Attendee list as a spreadsheet
func (h *RegistrationHandler) ExportRegistrations(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	if _, err := h.access.Operator(e, eventID, ""); err != nil {
		return respondError(e, err)
	}

	regs, err := h.registrations.ListRegistrations(e.Request.Context(), eventID)
	if err != nil {
		return respondError(e, err)
	}

	var buf bytes.Buffer
	if err := export.WriteRegistrations(&buf, regs, time.UTC); err != nil {
		slog.Error("export.WriteRegistrations()", "event_id", eventID, "error", err)
		return apis.NewInternalServerError("Export failed", nil)
	}

	e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(eventID, h.now())))
	return e.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

// TicketQR - The caller's ticket as a PNG
func (h *RegistrationHandler) TicketQR(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	png, err := h.tickets.TicketQR(e.Request.Context(), e.Request.PathValue("ticketCode"), e.Auth.Id)
	if err != nil {
		return respondError(e, err)
	}

	e.Response.Header().Set("Cache-Control", "private, max-age=300")
	return e.Blob(http.StatusOK, "image/png", png)
}
