// Package redisstore keeps access grants in Redis so that expiry is enforced
// by key TTL as well as by the validator.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type GrantStore struct {
	redis *redis.Client
	now   func() time.Time
}

func NewGrantStore(redisClient *redis.Client) *GrantStore {
	return &GrantStore{
		redis: redisClient,
		now:   time.Now,
	}
}

func grantKey(tokenHash string) string {
	return fmt.Sprintf("grant:%s", tokenHash)
}

func (s *GrantStore) SaveGrant(ctx context.Context, g *models.AccessGrant) error {
	ttl := g.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("save grant: already expired: %w", status.ErrInvalidInput)
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	data, err := json.Marshal(storedGrant{
		ID:           g.ID,
		TokenHash:    g.TokenHash,
		EventID:      g.EventID,
		GranteeEmail: g.GranteeEmail,
		GrantedBy:    g.GrantedBy,
		ExpiresAt:    g.ExpiresAt,
		CreatedAt:    g.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("save grant: %w", err)
	}

	if err := s.redis.Set(ctx, grantKey(g.TokenHash), string(data), ttl).Err(); err != nil {
		return fmt.Errorf("save grant: %w", err)
	}
	return nil
}

func (s *GrantStore) FindGrant(ctx context.Context, tokenHash, eventID string) (*models.AccessGrant, error) {
	data, err := s.redis.Get(ctx, grantKey(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find grant: %w: %w", status.ErrTransient, err)
	}

	var sg storedGrant
	if err := json.Unmarshal(data, &sg); err != nil {
		return nil, fmt.Errorf("find grant: decode: %w", err)
	}
	if sg.EventID != eventID {
		return nil, status.ErrNotFound
	}

	return &models.AccessGrant{
		ID:           sg.ID,
		TokenHash:    sg.TokenHash,
		EventID:      sg.EventID,
		GranteeEmail: sg.GranteeEmail,
		GrantedBy:    sg.GrantedBy,
		ExpiresAt:    sg.ExpiresAt,
		CreatedAt:    sg.CreatedAt,
	}, nil
}

// storedGrant is the Redis value. models.AccessGrant hides the digest from
// JSON, so it cannot be stored directly.
type storedGrant struct {
	ID           string    `json:"id"`
	TokenHash    string    `json:"token_hash"`
	EventID      string    `json:"event_id"`
	GranteeEmail string    `json:"grantee_email"`
	GrantedBy    string    `json:"granted_by"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
