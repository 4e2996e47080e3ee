package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/service"
)

// ListingHandler serves public browsing and owner management of listings.
type ListingHandler struct {
	listings *service.ListingService
}

func NewListingHandler(listings *service.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

type createListingReq struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Address     string   `json:"address" validate:"max=300"`
	City        string   `json:"city" validate:"required,max=100"`
	MonthlyRent float64  `json:"monthlyRent" validate:"required,gt=0"`
	TotalRooms  int      `json:"totalRooms" validate:"required,min=1,max=500"`
	Amenities   []string `json:"amenities" validate:"max=50,dive,max=100"`
	Images      []string `json:"images" validate:"max=20,dive,url"`
}

type updateListingReq struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Address     *string  `json:"address" validate:"omitempty,max=300"`
	City        *string  `json:"city" validate:"omitempty,min=1,max=100"`
	MonthlyRent *float64 `json:"monthlyRent" validate:"omitempty,gt=0"`
	TotalRooms  *int     `json:"totalRooms" validate:"omitempty,min=1,max=500"`
	Amenities   []string `json:"amenities" validate:"omitempty,max=50,dive,max=100"`
	Images      []string `json:"images" validate:"omitempty,max=20,dive,url"`
}

type listingStatusReq struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

// Search lists active listings: ?city=&maxRent=&minRooms=&page=&limit=.
func (h *ListingHandler) Search(c echo.Context) error {
	maxRent, _ := strconv.ParseFloat(c.QueryParam("maxRent"), 64)
	minRooms, _ := strconv.Atoi(c.QueryParam("minRooms"))

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.listings.Search(ctx, service.ListingQuery{
		City:              c.QueryParam("city"),
		MaxRent:           maxRent,
		MinAvailableRooms: minRooms,
		Page:              queryInt64(c, "page"),
		Limit:             queryInt64(c, "limit"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, page)
}

func (h *ListingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	listing, err := h.listings.Get(ctx, optionalActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, listing)
}

// Mine lists the owner's own listings in every status.
func (h *ListingHandler) Mine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.listings.Mine(ctx, actor, queryInt64(c, "page"), queryInt64(c, "limit"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, page)
}

func (h *ListingHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createListingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	listing, err := h.listings.Create(ctx, actor, service.ListingParams{
		Title:       &req.Title,
		Description: &req.Description,
		Address:     &req.Address,
		City:        &req.City,
		MonthlyRent: &req.MonthlyRent,
		TotalRooms:  &req.TotalRooms,
		Amenities:   req.Amenities,
		Images:      req.Images,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusCreated, listing)
}

func (h *ListingHandler) Update(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req updateListingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	listing, err := h.listings.Update(ctx, actor, id, service.ListingParams{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		MonthlyRent: req.MonthlyRent,
		TotalRooms:  req.TotalRooms,
		Amenities:   req.Amenities,
		Images:      req.Images,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, listing)
}

func (h *ListingHandler) SetStatus(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req listingStatusReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	listing, err := h.listings.SetStatus(ctx, actor, id, model.ListingStatus(req.Status))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, listing)
}

func (h *ListingHandler) Delete(c echo.Context) error {
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

	if err := h.listings.Delete(ctx, actor, id); err != nil {
		return respondError(c, err)
	}
	return okMessage(c, http.StatusOK, "listing deleted", nil)
}
