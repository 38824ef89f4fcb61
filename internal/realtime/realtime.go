// Package realtime fans successful check-ins out to live dashboards.
package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
)

// Channel is the per-event channel or routing key check-ins are published on.
func Channel(eventID string) string {
	return fmt.Sprintf("checkin-%s", eventID)
}

type Publisher interface {
	PublishCheckIn(ctx context.Context, evt models.CheckInEvent) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) PublishCheckIn(ctx context.Context, evt models.CheckInEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishCheckIn(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) PublishCheckIn(context.Context, models.CheckInEvent) error { return nil }
