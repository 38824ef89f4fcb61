package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/pocketbase/pocketbase/core"
)

type CheckInSubscriber interface {
	Subscribe(eventID string) (<-chan models.CheckInEvent, func())
}

type StreamHandler struct {
	access    *Access
	hub       CheckInSubscriber
	keepAlive time.Duration
}

func NewStreamHandler(access *Access, hub CheckInSubscriber) *StreamHandler {
	return &StreamHandler{
		access:    access,
		hub:       hub,
		keepAlive: 25 * time.Second,
	}
}

// StreamCheckIns - Server-sent events with every check-in for the event
func (h *StreamHandler) StreamCheckIns(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	if _, err := h.access.Operator(e, eventID, ""); err != nil {
		return respondError(e, err)
	}

	events, unsubscribe := h.hub.Subscribe(eventID)
	defer unsubscribe()

	w := e.Response
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := e.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}

		case evt, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: checkin\ndata: %s\n\n", data); err != nil {
				return nil
			}
		}

		if err := rc.Flush(); err != nil {
			return nil
		}
	}
}
