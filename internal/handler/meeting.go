package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/service"
)

// MeetingHandler serves the visit-request negotiation.
type MeetingHandler struct {
	meetings *service.MeetingService
}

func NewMeetingHandler(meetings *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

type createMeetingReq struct {
	PropertyID    string `json:"propertyId" validate:"required"`
	PreferredDate string `json:"preferredDate" validate:"required,date"`
	PreferredTime string `json:"preferredTime" validate:"required,clock"`
	Message       string `json:"message" validate:"max=1000"`
}

type ownerRespondReq struct {
	Action        string `json:"action" validate:"required,oneof=accept decline reschedule accept_counter decline_counter"`
	ProposedDate  string `json:"proposedDate" validate:"omitempty,date"`
	ProposedTime  string `json:"proposedTime" validate:"omitempty,clock"`
	OwnerNote     string `json:"ownerNote" validate:"max=1000"`
	DeclineReason string `json:"declineReason" validate:"max=500"`
}

type studentRespondReq struct {
	Action      string `json:"action" validate:"required,oneof=accept decline counter"`
	CounterDate string `json:"counterDate" validate:"omitempty,date"`
	CounterTime string `json:"counterTime" validate:"omitempty,clock"`
	Reason      string `json:"reason" validate:"max=500"`
}

type rescheduleReq struct {
	NewDate string `json:"newDate" validate:"required,date"`
	NewTime string `json:"newTime" validate:"required,clock"`
	Reason  string `json:"reason" validate:"max=500"`
}

type cancelReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

type completeReq struct {
	Outcome string `json:"outcome" validate:"omitempty,oneof=completed no_show"`
	Note    string `json:"note" validate:"max=1000"`
}

// Create books a viewing request as the authenticated student.
func (h *MeetingHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createMeetingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	propertyID, err := parseObjectID("propertyId", req.PropertyID)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.meetings.Create(ctx, actor, service.CreateMeetingParams{
		PropertyID: propertyID,
		Slot:       service.Slot{Date: req.PreferredDate, Time: req.PreferredTime},
		Message:    req.Message,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusCreated, m)
}

// List returns the caller's meetings, optionally filtered by ?status=.
func (h *MeetingHandler) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	meetings, err := h.meetings.List(ctx, actor, model.MeetingStatus(c.QueryParam("status")))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, meetings)
}

func (h *MeetingHandler) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.meetings.Get(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, m)
}

// Respond is the owner's answer.
func (h *MeetingHandler) Respond(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req ownerRespondReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.meetings.OwnerRespond(ctx, actor, id, service.OwnerResponse{
		Action: req.Action,
		Slot:   service.Slot{Date: req.ProposedDate, Time: req.ProposedTime},
		Note:   req.OwnerNote,
		Reason: req.DeclineReason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, m)
}

// StudentRespond is the student's answer to a proposal.
func (h *MeetingHandler) StudentRespond(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req studentRespondReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.meetings.StudentRespond(ctx, actor, id, service.StudentResponse{
		Action: req.Action,
		Slot:   service.Slot{Date: req.CounterDate, Time: req.CounterTime},
		Reason: req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, m)
}

// Reschedule moves a meeting to a new confirmed slot (owner only).
func (h *MeetingHandler) Reschedule(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req rescheduleReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.meetings.Reschedule(ctx, actor, id, service.Slot{Date: req.NewDate, Time: req.NewTime}, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, m)
}

func (h *MeetingHandler) Cancel(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req cancelReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.meetings.Cancel(ctx, actor, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, m)
}

// Complete closes a confirmed meeting as completed or no_show.
func (h *MeetingHandler) Complete(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req completeReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	outcome := model.MeetingCompleted
	if req.Outcome != "" {
		outcome = model.MeetingStatus(req.Outcome)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.meetings.Complete(ctx, actor, id, outcome, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, m)
}
