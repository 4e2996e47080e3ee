package service

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/repository"
)

// ListingParams holds listing fields.  On create every field is used; on
// update nil fields are left unchanged.
type ListingParams struct {
	Title       *string
	Description *string
	Address     *string
	City        *string
	MonthlyRent *float64
	TotalRooms  *int
	Amenities   []string
	Images      []string
}

// ListingQuery is a public search.
type ListingQuery struct {
	City              string
	MaxRent           float64
	MinAvailableRooms int
	Page              int64
	Limit             int64
}

// ListingPage is one page of search results.
type ListingPage struct {
	Items []*model.Listing `json:"items"`
	Total int64            `json:"total"`
	Page  int64            `json:"page"`
	Limit int64            `json:"limit"`
}

// ListingService manages properties.
type ListingService struct {
	listings repository.ListingRepository
}

// NewListingService wires the listing module.
func NewListingService(listings repository.ListingRepository) *ListingService {
	return &ListingService{listings: listings}
}

// Create publishes a listing for an owner.  All rooms start available.
func (s *ListingService) Create(ctx context.Context, actor Actor, params ListingParams) (*model.Listing, error) {
	if actor.Role != model.RoleOwner {
		return nil, ErrForbidden
	}
	if params.Title == nil || params.City == nil || params.MonthlyRent == nil || params.TotalRooms == nil {
		return nil, invalid("listing", "title, city, monthlyRent and totalRooms are required")
	}
	if *params.TotalRooms < 1 {
		return nil, invalid("totalRooms", "totalRooms must be at least 1")
	}

	listing := &model.Listing{
		Owner:          actor.ID,
		Title:          *params.Title,
		Description:    deref(params.Description),
		Address:        deref(params.Address),
		City:           *params.City,
		MonthlyRent:    *params.MonthlyRent,
		TotalRooms:     *params.TotalRooms,
		AvailableRooms: *params.TotalRooms,
		Amenities:      nonNil(params.Amenities),
		Images:         nonNil(params.Images),
		Status:         model.ListingActive,
	}
	return s.listings.Create(ctx, listing)
}

// Get returns a listing.  Inactive listings are visible to their owner
// only.
func (s *ListingService) Get(ctx context.Context, viewer *Actor, id bson.ObjectID) (*model.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Status != model.ListingActive && (viewer == nil || viewer.ID != listing.Owner) {
		return nil, ErrNotFound
	}
	return listing, nil
}

// Search lists active listings.
func (s *ListingService) Search(ctx context.Context, q ListingQuery) (*ListingPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	items, total, err := s.listings.List(ctx, repository.ListingFilter{
		City:              q.City,
		MaxRent:           q.MaxRent,
		MinAvailableRooms: q.MinAvailableRooms,
		Status:            model.ListingActive,
		Limit:             limit,
		Offset:            (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &ListingPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Mine lists every listing of the owner regardless of status.
func (s *ListingService) Mine(ctx context.Context, actor Actor, pageNum, limit int64) (*ListingPage, error) {
	page, limit := normalizePage(pageNum, limit)
	owner := actor.ID
	items, total, err := s.listings.List(ctx, repository.ListingFilter{
		Owner:  &owner,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &ListingPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Update edits a listing.  Changing totalRooms shifts availableRooms by the
// same amount and may not push it below zero.
func (s *ListingService) Update(ctx context.Context, actor Actor, id bson.ObjectID, params ListingParams) (*model.Listing, error) {
	current, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Owner != actor.ID {
		return nil, ErrForbidden
	}

	update := repository.UpdateListingParams{
		Title:       params.Title,
		Description: params.Description,
		Address:     params.Address,
		City:        params.City,
		MonthlyRent: params.MonthlyRent,
		Amenities:   params.Amenities,
		Images:      params.Images,
	}
	if params.TotalRooms != nil && *params.TotalRooms != current.TotalRooms {
		total := *params.TotalRooms
		if total < 1 {
			return nil, invalid("totalRooms", "totalRooms must be at least 1")
		}
		available := current.AvailableRooms + (total - current.TotalRooms)
		if available < 0 {
			return nil, invalid("totalRooms", "totalRooms cannot drop below the rooms already booked")
		}
		update.TotalRooms = &total
		update.AvailableRooms = &available
	}
	return s.listings.Update(ctx, id, actor.ID, update)
}

// SetStatus activates or deactivates a listing.
func (s *ListingService) SetStatus(ctx context.Context, actor Actor, id bson.ObjectID, status model.ListingStatus) (*model.Listing, error) {
	if status != model.ListingActive && status != model.ListingInactive {
		return nil, invalid("status", "status must be one of active inactive")
	}
	return s.listings.Update(ctx, id, actor.ID, repository.UpdateListingParams{Status: &status})
}

// Delete removes a listing.  Room shares on it are swept by the next
// cleanup.
func (s *ListingService) Delete(ctx context.Context, actor Actor, id bson.ObjectID) error {
	return s.listings.Delete(ctx, id, actor.ID)
}

func normalizePage(page, limit int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
