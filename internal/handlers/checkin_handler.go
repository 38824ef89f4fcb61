package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type CheckInAuthority interface {
	CheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInResult, error)
}

type CheckInHandler struct {
	access   *Access
	checkIns CheckInAuthority
}

func NewCheckInHandler(access *Access, checkIns CheckInAuthority) *CheckInHandler {
	return &CheckInHandler{
		access:   access,
		checkIns: checkIns,
	}
}

// CheckIn - Mark a scanned ticket as checked in
func (h *CheckInHandler) CheckIn(e *core.RequestEvent) error {
	var req struct {
		EventID    string `json:"event_id"`
		UserID     string `json:"user_id"`
		GrantToken string `json:"grant_token"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" || req.UserID == "" {
		return apis.NewBadRequestError("event_id and user_id are required", nil)
	}

	operator, err := h.access.Operator(e, req.EventID, req.GrantToken)
	if err != nil {
		return respondError(e, err)
	}

	result, err := h.checkIns.CheckIn(e.Request.Context(), models.CheckInRequest{
		EventID:   req.EventID,
		UserID:    req.UserID,
		ScannedBy: operator,
	})
	if err != nil {
		if errors.Is(err, status.ErrTransient) {
			return e.JSON(http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"code":    "transient",
				"message": "Check-in service unavailable, try again",
			})
		}
		slog.Error("h.checkIns.CheckIn()", "event_id", req.EventID, "error", err)
		return respondError(e, err)
	}

	return e.JSON(http.StatusOK, result)
}
