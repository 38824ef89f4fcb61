// Package memstore keeps registrations, grants and events in process memory.
// It backs unit tests and single-node development runs.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/google/uuid"
)

type Store struct {
	mu            sync.Mutex
	registrations map[string]*models.Registration // by id
	grants        map[string]*models.AccessGrant  // by token hash
	events        map[string]*models.Event
	now           func() time.Time

	// FailWith, when set, is returned by every operation. Tests use it to
	// simulate an unavailable store.
	FailWith error
}

func New() *Store {
	return &Store{
		registrations: make(map[string]*models.Registration),
		grants:        make(map[string]*models.AccessGrant),
		events:        make(map[string]*models.Event),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store's notion of now.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) PutEvent(e *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.events[e.ID] = &cp
}

func (s *Store) FindEvent(_ context.Context, eventID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	e, ok := s.events[eventID]
	if !ok {
		return nil, status.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) CreateRegistration(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}

	for _, existing := range s.registrations {
		if existing.EventID == r.EventID && existing.UserID == r.UserID {
			return status.ErrAlreadyRegistered
		}
		if r.PaymentID != "" && existing.PaymentID == r.PaymentID {
			return status.ErrAlreadyRegistered
		}
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = s.now()
	cp := *r
	s.registrations[r.ID] = &cp
	return nil
}

func (s *Store) MarkCheckedIn(_ context.Context, eventID, userID, scannedBy string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	r := s.find(eventID, userID)
	if r == nil {
		return nil, status.ErrNotFound
	}
	if r.CheckedIn {
		cp := *r
		return &cp, status.ErrAlreadyCheckedIn
	}

	now := s.now()
	r.CheckedIn = true
	r.CheckedInAt = &now
	r.ScannedBy = scannedBy

	cp := *r
	return &cp, nil
}

func (s *Store) ListRegistrations(_ context.Context, eventID string) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	out := []models.Registration{}
	for _, r := range s.registrations {
		if r.EventID == eventID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindRegistrationByTicket(_ context.Context, ticketCode string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	for _, r := range s.registrations {
		if r.TicketCode == ticketCode {
			cp := *r
			return &cp, nil
		}
	}
	return nil, status.ErrNotFound
}

func (s *Store) SaveGrant(_ context.Context, g *models.AccessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	cp := *g
	s.grants[g.TokenHash] = &cp
	return nil
}

func (s *Store) FindGrant(_ context.Context, tokenHash, eventID string) (*models.AccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	g, ok := s.grants[tokenHash]
	if !ok || g.EventID != eventID {
		return nil, status.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *Store) find(eventID, userID string) *models.Registration {
	for _, r := range s.registrations {
		if r.EventID == eventID && r.UserID == userID {
			return r
		}
	}
	return nil
}
