package services

import (
	"context"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
)

// RegistrationStore is the single source of truth for check-in state.
type RegistrationStore interface {
	// CreateRegistration persists r and fills its ID and CreatedAt. A second
	// registration for the same (event, user) yields status.ErrAlreadyRegistered.
	CreateRegistration(ctx context.Context, r *models.Registration) error

	// MarkCheckedIn performs the false->true transition as one conditional
	// update evaluated by the store. It returns status.ErrNotFound when no
	// registration matches, and status.ErrAlreadyCheckedIn together with the
	// existing registration when the transition already happened. Any other
	// error is infrastructure and wraps status.ErrTransient.
	MarkCheckedIn(ctx context.Context, eventID, userID, scannedBy string) (*models.Registration, error)

	ListRegistrations(ctx context.Context, eventID string) ([]models.Registration, error)
	FindRegistrationByTicket(ctx context.Context, ticketCode string) (*models.Registration, error)
}

type GrantStore interface {
	SaveGrant(ctx context.Context, g *models.AccessGrant) error

	// FindGrant looks a grant up by token digest and event. Missing grants
	// yield status.ErrNotFound.
	FindGrant(ctx context.Context, tokenHash, eventID string) (*models.AccessGrant, error)
}

// EventStore resolves events for ownership and pricing decisions.
type EventStore interface {
	FindEvent(ctx context.Context, eventID string) (*models.Event, error)
}

// Publisher fans check-in results out to live dashboards. Implementations must
// not block the check-in path for long.
type Publisher interface {
	PublishCheckIn(ctx context.Context, evt models.CheckInEvent) error
}
