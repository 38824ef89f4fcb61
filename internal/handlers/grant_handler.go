package handlers

import (
	"context"
	"net/http"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type GrantIssuer interface {
	GenerateGrant(ctx context.Context, eventID, granterID, granteeEmail string) (*models.GrantToken, error)
	ValidateGrant(ctx context.Context, token, eventID string) models.GrantValidation
}

type GrantHandler struct {
	access *Access
	grants GrantIssuer
}

func NewGrantHandler(access *Access, grants GrantIssuer) *GrantHandler {
	return &GrantHandler{
		access: access,
		grants: grants,
	}
}

// CreateGrant - Issue a time-limited check-in desk link for an event
func (h *GrantHandler) CreateGrant(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	if err := h.access.Owner(e, eventID); err != nil {
		return respondError(e, err)
	}

	var req struct {
		GranteeEmail string `json:"grantee_email"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	grant, err := h.grants.GenerateGrant(e.Request.Context(), eventID, e.Auth.Id, req.GranteeEmail)
	if err != nil {
		return respondError(e, err)
	}

	return e.JSON(http.StatusCreated, grant)
}

// ValidateGrant - Check an access link before opening the desk
func (h *GrantHandler) ValidateGrant(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	token := grantToken(e)

	return e.JSON(http.StatusOK, h.grants.ValidateGrant(e.Request.Context(), token, eventID))
}
