package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/service"
)

// BookingHandler serves room bookings.
type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type createBookingReq struct {
	PropertyID     string `json:"propertyId" validate:"required"`
	MoveInDate     string `json:"moveInDate" validate:"required,date"`
	DurationMonths int    `json:"durationMonths" validate:"required,min=1,max=60"`
	PaymentMethod  string `json:"paymentMethod" validate:"omitempty,oneof=cash bank_transfer card mobile_money"`
	Notes          string `json:"notes" validate:"max=1000"`
}

type bookingStatusReq struct {
	Status string `json:"status" validate:"required,oneof=confirmed cancelled completed"`
}

func (h *BookingHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	propertyID, err := parseObjectID("propertyId", req.PropertyID)
	if err != nil {
		return respondError(c, err)
	}
	moveIn, _ := time.Parse(time.DateOnly, req.MoveInDate)

	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.bookings.Create(ctx, actor, service.CreateBookingParams{
		PropertyID:     propertyID,
		MoveInDate:     moveIn,
		DurationMonths: req.DurationMonths,
		PaymentMethod:  model.PaymentMethod(req.PaymentMethod),
		Notes:          req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusCreated, b)
}

func (h *BookingHandler) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bookings, err := h.bookings.List(ctx, actor, model.BookingStatus(c.QueryParam("status")))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, bookings)
}

func (h *BookingHandler) Get(c echo.Context) error {
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

	b, err := h.bookings.Get(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, b)
}

// UpdateStatus confirms, completes or cancels a booking.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req bookingStatusReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.bookings.UpdateStatus(ctx, actor, id, model.BookingStatus(req.Status))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, b)
}

// ConfirmPayment marks a booking paid (owner only).
func (h *BookingHandler) ConfirmPayment(c echo.Context) error {
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

	b, err := h.bookings.ConfirmPayment(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, http.StatusOK, "payment confirmed", b)
}
