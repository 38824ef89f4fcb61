// Package pbstore keeps registrations, grants and events in PocketBase
// collections.
package pbstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

const (
	CollectionEvents        = "events"
	CollectionRegistrations = "registrations"
	CollectionGrants        = "access_grants"
)

type Store struct {
	app core.App
}

func New(app core.App) *Store {
	return &Store{app: app}
}

func (s *Store) FindEvent(ctx context.Context, eventID string) (*models.Event, error) {
	rec, err := s.app.FindRecordById(CollectionEvents, eventID)
	if err != nil {
		return nil, classify(err)
	}
	return EventFromRecord(rec), nil
}

func (s *Store) CreateRegistration(ctx context.Context, r *models.Registration) error {
	collection, err := s.app.FindCachedCollectionByNameOrId(CollectionRegistrations)
	if err != nil {
		return fmt.Errorf("find registrations collection: %w: %w", status.ErrTransient, err)
	}

	existing, err := s.app.FindFirstRecordByFilter(
		CollectionRegistrations,
		"event_id = {:eventId} && user_id = {:userId}",
		dbx.Params{"eventId": r.EventID, "userId": r.UserID},
	)
	if err == nil && existing != nil {
		return status.ErrAlreadyRegistered
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup registration: %w: %w", status.ErrTransient, err)
	}

	if r.PaymentID != "" {
		paid, err := s.app.FindFirstRecordByData(CollectionRegistrations, "payment_id", r.PaymentID)
		if err == nil && paid != nil {
			return status.ErrAlreadyRegistered
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup payment: %w: %w", status.ErrTransient, err)
		}
	}

	rec := core.NewRecord(collection)
	rec.Set("event_id", r.EventID)
	rec.Set("user_id", r.UserID)
	rec.Set("name", r.Name)
	rec.Set("email", r.Email)
	rec.Set("phone", r.Phone)
	rec.Set("organization", r.Organization)
	rec.Set("ticket_code", r.TicketCode)
	rec.Set("payment_id", r.PaymentID)
	rec.Set("checked_in", false)

	if err := s.app.SaveWithContext(ctx, rec); err != nil {
		// the unique (event_id, user_id) and payment_id indexes lose a
		// concurrent duplicate here
		if strings.Contains(err.Error(), "UNIQUE") {
			return status.ErrAlreadyRegistered
		}
		return fmt.Errorf("save registration: %w: %w", status.ErrTransient, err)
	}

	r.ID = rec.Id
	r.CreatedAt = rec.GetDateTime("created").Time()
	return nil
}

// MarkCheckedIn issues a single UPDATE guarded by checked_in = false, so
// SQLite's write lock serializes competing stations and only one row change
// is ever observed.
func (s *Store) MarkCheckedIn(ctx context.Context, eventID, userID, scannedBy string) (*models.Registration, error) {
	now := types.NowDateTime()

	res, err := s.app.DB().Update(
		CollectionRegistrations,
		dbx.Params{
			"checked_in":    true,
			"checked_in_at": now.String(),
			"scanned_by":    scannedBy,
			"updated":       now.String(),
		},
		dbx.HashExp{
			"event_id":   eventID,
			"user_id":    userID,
			"checked_in": false,
		},
	).WithContext(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("mark checked in: %w: %w", status.ErrTransient, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mark checked in: %w: %w", status.ErrTransient, err)
	}

	reg, err := s.findRegistration(eventID, userID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return reg, status.ErrAlreadyCheckedIn
	}
	return reg, nil
}

func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]models.Registration, error) {
	records, err := s.app.FindRecordsByFilter(
		CollectionRegistrations,
		"event_id = {:eventId}",
		"created",
		0,
		0,
		dbx.Params{"eventId": eventID},
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w: %w", status.ErrTransient, err)
	}

	out := make([]models.Registration, 0, len(records))
	for _, rec := range records {
		out = append(out, *registrationFromRecord(rec))
	}
	return out, nil
}

func (s *Store) FindRegistrationByTicket(ctx context.Context, ticketCode string) (*models.Registration, error) {
	rec, err := s.app.FindFirstRecordByData(CollectionRegistrations, "ticket_code", ticketCode)
	if err != nil {
		return nil, classify(err)
	}
	return registrationFromRecord(rec), nil
}

func (s *Store) SaveGrant(ctx context.Context, g *models.AccessGrant) error {
	collection, err := s.app.FindCachedCollectionByNameOrId(CollectionGrants)
	if err != nil {
		return fmt.Errorf("find grants collection: %w", err)
	}

	rec := core.NewRecord(collection)
	rec.Set("token_hash", g.TokenHash)
	rec.Set("event_id", g.EventID)
	rec.Set("grantee_email", g.GranteeEmail)
	rec.Set("granted_by", g.GrantedBy)
	rec.Set("expires_at", g.ExpiresAt)

	if err := s.app.SaveWithContext(ctx, rec); err != nil {
		return fmt.Errorf("save grant: %w", err)
	}

	g.ID = rec.Id
	g.CreatedAt = rec.GetDateTime("created").Time()
	return nil
}

func (s *Store) FindGrant(ctx context.Context, tokenHash, eventID string) (*models.AccessGrant, error) {
	rec, err := s.app.FindFirstRecordByFilter(
		CollectionGrants,
		"token_hash = {:hash} && event_id = {:eventId}",
		dbx.Params{"hash": tokenHash, "eventId": eventID},
	)
	if err != nil {
		return nil, classify(err)
	}

	return &models.AccessGrant{
		ID:           rec.Id,
		TokenHash:    rec.GetString("token_hash"),
		EventID:      rec.GetString("event_id"),
		GranteeEmail: rec.GetString("grantee_email"),
		GrantedBy:    rec.GetString("granted_by"),
		ExpiresAt:    rec.GetDateTime("expires_at").Time(),
		CreatedAt:    rec.GetDateTime("created").Time(),
	}, nil
}

func (s *Store) findRegistration(eventID, userID string) (*models.Registration, error) {
	rec, err := s.app.FindFirstRecordByFilter(
		CollectionRegistrations,
		"event_id = {:eventId} && user_id = {:userId}",
		dbx.Params{"eventId": eventID, "userId": userID},
	)
	if err != nil {
		return nil, classify(err)
	}
	return registrationFromRecord(rec), nil
}

func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return status.ErrNotFound
	}
	return fmt.Errorf("%w: %w", status.ErrTransient, err)
}

func registrationFromRecord(rec *core.Record) *models.Registration {
	r := &models.Registration{
		ID:           rec.Id,
		EventID:      rec.GetString("event_id"),
		UserID:       rec.GetString("user_id"),
		Name:         rec.GetString("name"),
		Email:        rec.GetString("email"),
		Phone:        rec.GetString("phone"),
		Organization: rec.GetString("organization"),
		TicketCode:   rec.GetString("ticket_code"),
		PaymentID:    rec.GetString("payment_id"),
		CheckedIn:    rec.GetBool("checked_in"),
		ScannedBy:    rec.GetString("scanned_by"),
		CreatedAt:    rec.GetDateTime("created").Time(),
	}
	if r.CheckedIn {
		at := rec.GetDateTime("checked_in_at").Time()
		r.CheckedInAt = &at
	}
	return r
}

// EventFromRecord maps an events collection record onto models.Event.
func EventFromRecord(rec *core.Record) *models.Event {
	return &models.Event{
		ID:          rec.Id,
		Title:       rec.GetString("title"),
		Description: rec.GetString("description"),
		Venue:       rec.GetString("venue"),
		OwnerID:     rec.GetString("owner"),
		Price:       decimal.NewFromFloat(rec.GetFloat("price")).Round(2),
		Currency:    rec.GetString("currency"),
		StartsAt:    rec.GetDateTime("starts_at").Time(),
		EndsAt:      rec.GetDateTime("ends_at").Time(),
		Status:      rec.GetString("status"),
	}
}

// RegistrationCreateHook keeps registrations created through the generic
// records API consistent with the check-in invariant: they always start
// unchecked and always carry a ticket code.
func RegistrationCreateHook(newTicketCode func() string) func(e *core.RecordEvent) error {
	return func(e *core.RecordEvent) error {
		if e.Record.GetString("ticket_code") == "" {
			e.Record.Set("ticket_code", newTicketCode())
		}
		e.Record.Set("checked_in", false)
		e.Record.Set("checked_in_at", "")
		e.Record.Set("scanned_by", "")
		return e.Next()
	}
}

// RegistrationUpdateRequestHook rejects edits of check-in state through the
// records API. The transition belongs to the check-in endpoint only.
func RegistrationUpdateRequestHook(e *core.RecordRequestEvent) error {
	original := e.Record.Original()
	if e.Record.GetBool("checked_in") != original.GetBool("checked_in") ||
		e.Record.GetString("checked_in_at") != original.GetString("checked_in_at") {
		return apis.NewForbiddenError("Check-in state can only change through the check-in endpoint", nil)
	}
	return e.Next()
}
