package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/service"
)

// ProfileHandler serves profile edits and verification requests.
type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type updateProfileReq struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

func (h *ProfileHandler) Update(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req updateProfileReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.profiles.Update(ctx, actor.ID, service.UpdateProfileParams{Name: req.Name, Phone: req.Phone})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, user)
}

// RequestVerification queues the account for identity review.
func (h *ProfileHandler) RequestVerification(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.profiles.RequestVerification(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, http.StatusOK, "verification requested", user)
}
