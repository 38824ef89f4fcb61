package status

import "errors"

var (
	ErrNotFound          = errors.New("ticket: registration not found")
	ErrAlreadyCheckedIn  = errors.New("ticket: already checked in")
	ErrAlreadyRegistered = errors.New("registration: already registered for event")
	ErrInvalidInput      = errors.New("request: invalid input")
	ErrEventClosed       = errors.New("registration: event is not open for registration")
	ErrPaymentRequired   = errors.New("registration: event requires payment")

	// ErrTransient marks store and network failures. Callers retry; it is never
	// evidence of an invalid ticket.
	ErrTransient = errors.New("store: temporarily unavailable")

	ErrInvalidGrant = errors.New("grant: invalid or expired")
	ErrForbidden    = errors.New("access: forbidden")

	ErrInvalidQR         = errors.New("qr: invalid QR code format")
	ErrSignatureMismatch = errors.New("payment: signature mismatch")
	ErrFailedPayment     = errors.New("payment: payment failed")
)
