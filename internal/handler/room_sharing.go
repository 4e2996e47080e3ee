package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/service"
)

// RoomSharingHandler serves shares, applications and the cleanup trigger.
type RoomSharingHandler struct {
	shares *service.RoomSharingService
}

func NewRoomSharingHandler(shares *service.RoomSharingService) *RoomSharingHandler {
	return &RoomSharingHandler{shares: shares}
}

type createShareReq struct {
	PropertyID      string  `json:"propertyId" validate:"required"`
	Title           string  `json:"title" validate:"required,max=200"`
	Description     string  `json:"description" validate:"max=2000"`
	MaxParticipants int     `json:"maxParticipants" validate:"required,min=2,max=20"`
	RentShare       float64 `json:"rentShare" validate:"gte=0"`
}

type applyReq struct {
	Message string `json:"message" validate:"max=1000"`
}

type applicationRespondReq struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

type deactivateReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *RoomSharingHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createShareReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	propertyID, err := parseObjectID("propertyId", req.PropertyID)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	share, err := h.shares.Create(ctx, actor, service.CreateRoomShareParams{
		PropertyID:      propertyID,
		Title:           req.Title,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		RentShare:       req.RentShare,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusCreated, share)
}

// List supports ?propertyId=, ?status= and ?mine=true.
func (h *RoomSharingHandler) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	params := service.RoomShareListParams{
		Mine:   c.QueryParam("mine") == "true",
		Status: model.RoomSharingStatus(c.QueryParam("status")),
	}
	if raw := c.QueryParam("propertyId"); raw != "" {
		id, err := parseObjectID("propertyId", raw)
		if err != nil {
			return respondError(c, err)
		}
		params.PropertyID = &id
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	shares, err := h.shares.List(ctx, actor, params)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, shares)
}

func (h *RoomSharingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	share, err := h.shares.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, share)
}

func (h *RoomSharingHandler) Apply(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req applyReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	share, err := h.shares.Apply(ctx, actor, id, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusCreated, share)
}

// RespondApplication accepts or rejects one application (initiator only).
func (h *RoomSharingHandler) RespondApplication(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	appID, err := pathID(c, "appId")
	if err != nil {
		return respondError(c, err)
	}
	var req applicationRespondReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	share, err := h.shares.Respond(ctx, actor, id, appID, req.Action == "accept")
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, share)
}

func (h *RoomSharingHandler) Deactivate(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req deactivateReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	share, err := h.shares.Deactivate(ctx, actor, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, http.StatusOK, "room share deactivated", share)
}

// Cleanup runs the stale share sweep.  Access is checked by the cron
// middleware in front of it.
func (h *RoomSharingHandler) Cleanup(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.shares.Cleanup(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, http.StatusOK, "cleanup completed", res)
}
