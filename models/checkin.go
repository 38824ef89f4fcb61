package models

import (
	"time"
)

const (
	CheckInCodeSuccess          = "checked_in"
	CheckInCodeNotFound         = "not_found"
	CheckInCodeAlreadyCheckedIn = "already_checked_in"

	MessageCheckedIn        = "Check-in successful"
	MessageInvalidTicket    = "Invalid ticket"
	MessageAlreadyCheckedIn = "Attendee already checked in"
)

type CheckInRequest struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`

	// ScannedBy is the operator account, empty for grant-delegated stations.
	ScannedBy string `json:"-"`
}

type CheckInData struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

type CheckInResult struct {
	Success bool         `json:"success"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Data    *CheckInData `json:"data,omitempty"`
}

// CheckInEvent is published on the realtime channel after a successful check-in.
type CheckInEvent struct {
	Type        string    `json:"type"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	CheckedInAt time.Time `json:"checked_in_at"`
}
