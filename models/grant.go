package models

import (
	"time"
)

// AccessGrant lets non-owner staff run the check-in station for one event until
// ExpiresAt. Only a digest of the bearer token is persisted.
type AccessGrant struct {
	ID           string    `json:"id"`
	TokenHash    string    `json:"-"`
	EventID      string    `json:"event_id"`
	GranteeEmail string    `json:"grantee_email"`
	GrantedBy    string    `json:"granted_by"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActiveAt reports whether the grant is usable at now.
func (g *AccessGrant) ActiveAt(now time.Time) bool {
	return now.Before(g.ExpiresAt)
}

// GrantToken is handed to the granter once; the raw token is never stored.
type GrantToken struct {
	Token     string    `json:"token"`
	EventID   string    `json:"event_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type GrantValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
