package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
)

const grantTokenHeader = "X-Grant-Token"

type EventFinder interface {
	FindEvent(ctx context.Context, eventID string) (*models.Event, error)
}

type GrantAuthorizer interface {
	Authorize(ctx context.Context, token, eventID string) error
}

// Access decides who may operate an event's check-in desk: superusers, the
// event owner, or the holder of a live access grant for that event.
type Access struct {
	events EventFinder
	grants GrantAuthorizer
}

func NewAccess(events EventFinder, grants GrantAuthorizer) *Access {
	return &Access{events: events, grants: grants}
}

// Operator returns the account to record as scanned_by, which is empty for
// grant holders. A presented grant is judged on its own even when the caller
// is signed in but does not own the event.
func (a *Access) Operator(e *core.RequestEvent, eventID, token string) (string, error) {
	if e.HasSuperuserAuth() {
		return e.Auth.Id, nil
	}

	if token == "" {
		token = grantToken(e)
	}

	if e.Auth != nil {
		owner, err := a.isOwner(e.Request.Context(), eventID, e.Auth.Id)
		switch {
		case err == nil && owner:
			return e.Auth.Id, nil
		case errors.Is(err, status.ErrNotFound):
			if token == "" {
				return "", eventNotFound()
			}
		case err != nil:
			return "", err
		}
	}

	if token != "" {
		if err := a.grants.Authorize(e.Request.Context(), token, eventID); err == nil {
			return "", nil
		}
		return "", apis.NewForbiddenError("Invalid or expired access link", nil)
	}

	if e.Auth == nil {
		return "", apis.NewUnauthorizedError("Sign in or use an access link", nil)
	}
	return "", apis.NewForbiddenError("You do not manage this event", nil)
}

// Owner allows only superusers and the event owner.
func (a *Access) Owner(e *core.RequestEvent, eventID string) error {
	if e.HasSuperuserAuth() {
		return nil
	}
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	owner, err := a.isOwner(e.Request.Context(), eventID, e.Auth.Id)
	if errors.Is(err, status.ErrNotFound) {
		return eventNotFound()
	}
	if err != nil {
		return err
	}
	if !owner {
		return apis.NewForbiddenError("You do not manage this event", nil)
	}
	return nil
}

func (a *Access) isOwner(ctx context.Context, eventID, accountID string) (bool, error) {
	event, err := a.events.FindEvent(ctx, eventID)
	if err != nil {
		if !errors.Is(err, status.ErrNotFound) {
			slog.Error("a.events.FindEvent()", "event_id", eventID, "error", err)
		}
		return false, err
	}
	return event.OwnerID == accountID, nil
}

func eventNotFound() error {
	return apis.NewNotFoundError("Event not found", nil)
}

func grantToken(e *core.RequestEvent) string {
	if t := strings.TrimSpace(e.Request.URL.Query().Get("token")); t != "" {
		return t
	}
	return strings.TrimSpace(e.Request.Header.Get(grantTokenHeader))
}

// respondError maps service errors onto API responses. Transient failures
// become 503 so clients retry instead of treating the request as rejected.
func respondError(e *core.RequestEvent, err error) error {
	var apiErr *router.ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, status.ErrTransient):
		return e.JSON(http.StatusServiceUnavailable, map[string]any{
			"error": "Service temporarily unavailable, try again",
		})
	case errors.Is(err, status.ErrInvalidInput),
		errors.Is(err, status.ErrEventClosed),
		errors.Is(err, status.ErrPaymentRequired),
		errors.Is(err, status.ErrSignatureMismatch):
		return apis.NewBadRequestError(publicMessage(err), nil)
	case errors.Is(err, status.ErrAlreadyRegistered):
		return apis.NewBadRequestError("Already registered for this event", nil)
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError("Not found", nil)
	case errors.Is(err, status.ErrForbidden), errors.Is(err, status.ErrInvalidGrant):
		return apis.NewForbiddenError("Access denied", nil)
	default:
		return apis.NewInternalServerError("Internal error", nil)
	}
}

func publicMessage(err error) string {
	for _, known := range []error{
		status.ErrEventClosed,
		status.ErrPaymentRequired,
		status.ErrSignatureMismatch,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "Invalid request"
}
