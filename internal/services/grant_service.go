package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/monitoring"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/utils"
	"golang.org/x/crypto/blake2b"
)

const (
	grantTokenBytes    = 32
	grantInvalidReason = "invalid or expired"
)

type GrantService struct {
	store   GrantStore
	ttl     time.Duration
	monitor *monitoring.Monitor
	now     func() time.Time
}

func NewGrantService(store GrantStore, ttl time.Duration, monitor *monitoring.Monitor) *GrantService {
	return &GrantService{
		store:   store,
		ttl:     ttl,
		monitor: monitor,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// HashGrantToken is the digest under which a grant is stored and looked up.
func HashGrantToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateGrant issues a bearer token for eventID that stays valid for the
// service TTL. The raw token is returned once and never persisted.
func (s *GrantService) GenerateGrant(ctx context.Context, eventID, granterID, granteeEmail string) (*models.GrantToken, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" || granterID == "" {
		return nil, fmt.Errorf("generate grant: %w", status.ErrInvalidInput)
	}
	if granteeEmail != "" {
		if _, err := mail.ParseAddress(granteeEmail); err != nil {
			return nil, fmt.Errorf("generate grant: grantee email: %w", status.ErrInvalidInput)
		}
	}

	token, err := utils.GenerateToken(grantTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate grant: %w", err)
	}

	now := s.now()
	grant := &models.AccessGrant{
		TokenHash:    HashGrantToken(token),
		EventID:      eventID,
		GranteeEmail: granteeEmail,
		GrantedBy:    granterID,
		ExpiresAt:    now.Add(s.ttl),
		CreatedAt:    now,
	}
	if err := s.store.SaveGrant(ctx, grant); err != nil {
		slog.Error("s.store.SaveGrant()", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("generate grant: %w: %w", status.ErrTransient, err)
	}

	slog.Info("Access grant issued", "event_id", eventID, "granted_by", granterID, "expires_at", grant.ExpiresAt)

	return &models.GrantToken{
		Token:     token,
		EventID:   eventID,
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

// ValidateGrant checks, in order, that the token exists, that it is bound to
// eventID and that it has not expired. All failures look the same to the
// caller.
func (s *GrantService) ValidateGrant(ctx context.Context, token, eventID string) models.GrantValidation {
	invalid := models.GrantValidation{Valid: false, Reason: grantInvalidReason}

	if token == "" || eventID == "" {
		s.monitor.TrackGrantValidation("invalid")
		return invalid
	}

	grant, err := s.store.FindGrant(ctx, HashGrantToken(token), eventID)
	if err != nil {
		outcome := "invalid"
		if !isNotFound(err) {
			outcome = "error"
			slog.Error("s.store.FindGrant()", "event_id", eventID, "error", err)
		}
		s.monitor.TrackGrantValidation(outcome)
		return invalid
	}

	if grant.EventID != eventID || !grant.ActiveAt(s.now()) {
		s.monitor.TrackGrantValidation("invalid")
		return invalid
	}

	s.monitor.TrackGrantValidation("valid")
	return models.GrantValidation{Valid: true}
}

// Authorize is ValidateGrant expressed as an error for handler code.
func (s *GrantService) Authorize(ctx context.Context, token, eventID string) error {
	if v := s.ValidateGrant(ctx, token, eventID); !v.Valid {
		return status.ErrInvalidGrant
	}
	return nil
}
