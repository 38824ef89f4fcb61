package models

import (
	"time"
)

// GuestUserPrefix marks user ids minted for attendees without an account.
const GuestUserPrefix = "guest_"

// Registration is one attendee's claim on one event. CheckedInAt is non-nil
// exactly when CheckedIn is true.
type Registration struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Organization string     `json:"organization,omitempty"`
	TicketCode   string     `json:"ticket_code"`
	PaymentID    string     `json:"payment_id,omitempty"`
	CheckedIn    bool       `json:"checked_in"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	ScannedBy    string     `json:"scanned_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type RegisterRequest struct {
	EventID      string `json:"event_id"`
	AccountID    string `json:"-"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
}

type PaidRegisterRequest struct {
	RegisterRequest
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}
