package models

// TicketPayload is the structured content of a ticket QR code. The registration
// store stays authoritative; the payload only locates the registration.
type TicketPayload struct {
	EventID  string `json:"event_id"`
	UserID   string `json:"user_id"`
	Ticket   string `json:"ticket,omitempty"`
	IssuedAt int64  `json:"iat,omitempty"`
}

// Complete reports whether both identifiers needed for check-in are present.
func (p TicketPayload) Complete() bool {
	return p.EventID != "" && p.UserID != ""
}

type Ticket struct {
	Registration *Registration `json:"registration"`
	Payload      TicketPayload `json:"payload"`
	QRCode       []byte        `json:"qr_code"` // PNG, base64 in JSON
}
