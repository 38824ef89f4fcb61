package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/monitoring"
)

// CheckInService is the check-in authority. It never decides success itself;
// the store's conditional update does.
type CheckInService struct {
	store     RegistrationStore
	publisher Publisher
	monitor   *monitoring.Monitor
}

func NewCheckInService(store RegistrationStore, publisher Publisher, monitor *monitoring.Monitor) *CheckInService {
	return &CheckInService{
		store:     store,
		publisher: publisher,
		monitor:   monitor,
	}
}

// CheckIn flips the registration for (EventID, UserID) to checked in at most
// once. Not-found and duplicate scans are structured results, not errors. The
// returned error is non-nil only for bad input or an unavailable store, in
// which case it wraps status.ErrInvalidInput or status.ErrTransient.
func (s *CheckInService) CheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInResult, error) {
	eventID := strings.TrimSpace(req.EventID)
	userID := strings.TrimSpace(req.UserID)
	if eventID == "" || userID == "" {
		return nil, fmt.Errorf("check in: event_id and user_id are required: %w", status.ErrInvalidInput)
	}

	start := time.Now()
	reg, err := s.store.MarkCheckedIn(ctx, eventID, userID, req.ScannedBy)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.monitor.TrackCheckIn(eventID, models.CheckInCodeSuccess, elapsed)
		slog.Info("Attendee checked in", "event_id", eventID, "user_id", userID, "scanned_by", req.ScannedBy)

		result := &models.CheckInResult{
			Success: true,
			Code:    models.CheckInCodeSuccess,
			Message: models.MessageCheckedIn,
			Data:    checkInData(reg),
		}
		s.publish(ctx, reg)
		return result, nil

	case errors.Is(err, status.ErrAlreadyCheckedIn):
		s.monitor.TrackCheckIn(eventID, models.CheckInCodeAlreadyCheckedIn, elapsed)
		slog.Info("Duplicate check-in", "event_id", eventID, "user_id", userID)

		return &models.CheckInResult{
			Success: false,
			Code:    models.CheckInCodeAlreadyCheckedIn,
			Message: models.MessageAlreadyCheckedIn,
			Data:    checkInData(reg),
		}, nil

	case errors.Is(err, status.ErrNotFound):
		s.monitor.TrackCheckIn(eventID, models.CheckInCodeNotFound, elapsed)
		slog.Warn("Check-in for unknown ticket", "event_id", eventID, "user_id", userID)

		return &models.CheckInResult{
			Success: false,
			Code:    models.CheckInCodeNotFound,
			Message: models.MessageInvalidTicket,
		}, nil

	default:
		s.monitor.TrackCheckIn(eventID, "transient", elapsed)
		slog.Error("s.store.MarkCheckedIn()", "event_id", eventID, "user_id", userID, "error", err)

		if errors.Is(err, status.ErrTransient) {
			return nil, fmt.Errorf("check in: %w", err)
		}
		return nil, fmt.Errorf("check in: %w: %w", status.ErrTransient, err)
	}
}

func (s *CheckInService) publish(ctx context.Context, reg *models.Registration) {
	if s.publisher == nil || reg == nil || reg.CheckedInAt == nil {
		return
	}

	evt := models.CheckInEvent{
		Type:        "checkin",
		EventID:     reg.EventID,
		UserID:      reg.UserID,
		Name:        reg.Name,
		CheckedInAt: *reg.CheckedInAt,
	}
	if err := s.publisher.PublishCheckIn(ctx, evt); err != nil {
		slog.Warn("Failed to publish check-in", "event_id", reg.EventID, "error", err)
	}
}

func checkInData(reg *models.Registration) *models.CheckInData {
	if reg == nil {
		return nil
	}
	data := &models.CheckInData{
		Name:  reg.Name,
		Email: reg.Email,
	}
	if reg.CheckedInAt != nil {
		data.CheckedInAt = *reg.CheckedInAt
	}
	return data
}
