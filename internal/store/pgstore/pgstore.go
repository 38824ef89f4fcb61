// Package pgstore keeps registrations, grants and events in Postgres.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	venue       TEXT NOT NULL DEFAULT '',
	owner       TEXT NOT NULL,
	price       NUMERIC(12, 2) NOT NULL DEFAULT 0,
	currency    TEXT NOT NULL DEFAULT 'INR',
	starts_at   TIMESTAMPTZ NOT NULL,
	ends_at     TIMESTAMPTZ,
	status      TEXT NOT NULL DEFAULT 'draft'
);

CREATE TABLE IF NOT EXISTS registrations (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	event_id      TEXT NOT NULL REFERENCES events (id),
	user_id       TEXT NOT NULL,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	organization  TEXT NOT NULL DEFAULT '',
	ticket_code   TEXT NOT NULL UNIQUE,
	payment_id    TEXT NOT NULL DEFAULT '',
	checked_in    BOOLEAN NOT NULL DEFAULT FALSE,
	checked_in_at TIMESTAMPTZ,
	scanned_by    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (event_id, user_id),
	CHECK (checked_in = (checked_in_at IS NOT NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS registrations_payment_id_key
	ON registrations (payment_id) WHERE payment_id <> '';

CREATE TABLE IF NOT EXISTS access_grants (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	token_hash    TEXT NOT NULL,
	event_id      TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
	grantee_email TEXT NOT NULL DEFAULT '',
	granted_by    TEXT NOT NULL,
	expires_at    TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (token_hash, event_id)
);
`

const registrationColumns = `id, event_id, user_id, name, email, phone, organization, ticket_code,
	payment_id, checked_in, checked_in_at, scanned_by, created_at`

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pool and verifies the server is reachable.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) PutEvent(ctx context.Context, e *models.Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO events (id, title, description, venue, owner, price, currency, starts_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description, venue = EXCLUDED.venue,
			owner = EXCLUDED.owner, price = EXCLUDED.price, currency = EXCLUDED.currency,
			starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at, status = EXCLUDED.status`,
		e.ID, e.Title, e.Description, e.Venue, e.OwnerID, e.Price.String(), e.Currency, e.StartsAt, nullTime(e.EndsAt), e.Status,
	)
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

func (s *Store) FindEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var (
		e     models.Event
		price string
		ends  *time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, title, description, venue, owner, price::text, currency, starts_at, ends_at, status
		FROM events WHERE id = $1`, eventID,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.OwnerID, &price, &e.Currency, &e.StartsAt, &ends, &e.Status)
	if err != nil {
		return nil, classify("find event", err)
	}

	e.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("find event: price %q: %w", price, err)
	}
	if ends != nil {
		e.EndsAt = *ends
	}
	return &e, nil
}

func (s *Store) CreateRegistration(ctx context.Context, r *models.Registration) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO registrations (event_id, user_id, name, email, phone, organization, ticket_code, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		r.EventID, r.UserID, r.Name, r.Email, r.Phone, r.Organization, r.TicketCode, r.PaymentID,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return status.ErrAlreadyRegistered
		}
		return fmt.Errorf("create registration: %w: %w", status.ErrTransient, err)
	}
	return nil
}

// MarkCheckedIn runs the transition as one guarded UPDATE. Postgres row
// locking lets exactly one concurrent caller see a returned row; the rest
// fall through to the classifying read.
func (s *Store) MarkCheckedIn(ctx context.Context, eventID, userID, scannedBy string) (*models.Registration, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE registrations
		SET checked_in = TRUE, checked_in_at = now(), scanned_by = $3
		WHERE event_id = $1 AND user_id = $2 AND NOT checked_in
		RETURNING `+registrationColumns,
		eventID, userID, scannedBy,
	)
	reg, err := scanRegistration(row)
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mark checked in: %w: %w", status.ErrTransient, err)
	}

	row = s.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	reg, err = scanRegistration(row)
	if err != nil {
		return nil, classify("mark checked in", err)
	}
	return reg, status.ErrAlreadyCheckedIn
}

func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]models.Registration, error) {
	rows, err := s.db.Query(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 ORDER BY created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w: %w", status.ErrTransient, err)
	}
	defer rows.Close()

	out := []models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("list registrations: %w", err)
		}
		out = append(out, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w: %w", status.ErrTransient, err)
	}
	return out, nil
}

func (s *Store) FindRegistrationByTicket(ctx context.Context, ticketCode string) (*models.Registration, error) {
	row := s.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE ticket_code = $1`, ticketCode)
	reg, err := scanRegistration(row)
	if err != nil {
		return nil, classify("find registration", err)
	}
	return reg, nil
}

func (s *Store) SaveGrant(ctx context.Context, g *models.AccessGrant) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO access_grants (token_hash, event_id, grantee_email, granted_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		g.TokenHash, g.EventID, g.GranteeEmail, g.GrantedBy, g.ExpiresAt, g.CreatedAt,
	).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("save grant: %w", err)
	}
	return nil
}

func (s *Store) FindGrant(ctx context.Context, tokenHash, eventID string) (*models.AccessGrant, error) {
	var g models.AccessGrant
	err := s.db.QueryRow(ctx, `
		SELECT id, token_hash, event_id, grantee_email, granted_by, expires_at, created_at
		FROM access_grants WHERE token_hash = $1 AND event_id = $2`, tokenHash, eventID,
	).Scan(&g.ID, &g.TokenHash, &g.EventID, &g.GranteeEmail, &g.GrantedBy, &g.ExpiresAt, &g.CreatedAt)
	if err != nil {
		return nil, classify("find grant", err)
	}
	return &g, nil
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var r models.Registration
	err := row.Scan(
		&r.ID, &r.EventID, &r.UserID, &r.Name, &r.Email, &r.Phone, &r.Organization, &r.TicketCode,
		&r.PaymentID, &r.CheckedIn, &r.CheckedInAt, &r.ScannedBy, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return status.ErrNotFound
	}
	return fmt.Errorf("%s: %w: %w", op, status.ErrTransient, err)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
