package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusEnded     = "ended"
)

type Event struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Venue       string          `json:"venue"`
	OwnerID     string          `json:"owner"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      time.Time       `json:"ends_at"`
	Status      string          `json:"status"` // draft, published, ended
}

// IsFree reports whether registering needs no payment.
func (e *Event) IsFree() bool {
	return e.Price.LessThanOrEqual(decimal.Zero)
}
