package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestListingCreate(t *testing.T) {
	ctx := context.Background()
	svc := NewListingService(newFakeListings())
	owner := Actor{ID: bson.NewObjectID(), Role: model.RoleOwner}

	l, err := svc.Create(ctx, owner, ListingParams{
		Title:       ptr("Loft"),
		City:        ptr("Kumasi"),
		MonthlyRent: ptr(250.0),
		TotalRooms:  ptr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, l.AvailableRooms)
	assert.Equal(t, model.ListingActive, l.Status)
	assert.NotNil(t, l.Amenities)
	assert.Equal(t, owner.ID, l.Owner)

	_, err = svc.Create(ctx, owner, ListingParams{Title: ptr("No city")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Create(ctx, Actor{ID: bson.NewObjectID(), Role: model.RoleStudent}, ListingParams{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListingUpdateTotalRoomsShiftsAvailability(t *testing.T) {
	ctx := context.Background()
	listings := newFakeListings()
	svc := NewListingService(listings)
	owner := Actor{ID: bson.NewObjectID(), Role: model.RoleOwner}

	l := listings.seed(model.Listing{Owner: owner.ID, Title: "Flat", City: "Accra", TotalRooms: 4, AvailableRooms: 1, Status: model.ListingActive})

	got, err := svc.Update(ctx, owner, l.ID, ListingParams{TotalRooms: ptr(6), Title: ptr("Bigger flat")})
	require.NoError(t, err)
	assert.Equal(t, 6, got.TotalRooms)
	assert.Equal(t, 3, got.AvailableRooms)
	assert.Equal(t, "Bigger flat", got.Title)

	_, err = svc.Update(ctx, owner, l.ID, ListingParams{TotalRooms: ptr(2)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "three rooms are booked")
	assert.Equal(t, "totalRooms", verr.Field)

	other := Actor{ID: bson.NewObjectID(), Role: model.RoleOwner}
	_, err = svc.Update(ctx, other, l.ID, ListingParams{Title: ptr("Mine now")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, owner, bson.NewObjectID(), ListingParams{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListingVisibility(t *testing.T) {
	ctx := context.Background()
	listings := newFakeListings()
	svc := NewListingService(listings)
	owner := Actor{ID: bson.NewObjectID(), Role: model.RoleOwner}
	l := listings.seed(model.Listing{Owner: owner.ID, Title: "Flat", City: "Accra", TotalRooms: 1, AvailableRooms: 1, Status: model.ListingActive})

	_, err := svc.SetStatus(ctx, owner, l.ID, "archived")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.SetStatus(ctx, owner, l.ID, model.ListingInactive)
	require.NoError(t, err)

	_, err = svc.Get(ctx, nil, l.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, &Actor{ID: bson.NewObjectID(), Role: model.RoleStudent}, l.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := svc.Get(ctx, &owner, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingInactive, got.Status)

	page, err := svc.Search(ctx, ListingQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	mine, err := svc.Mine(ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.Total)
	assert.EqualValues(t, 1, mine.Page)
	assert.EqualValues(t, 20, mine.Limit)
}

func TestListingSearchFilters(t *testing.T) {
	ctx := context.Background()
	listings := newFakeListings()
	svc := NewListingService(listings)
	owner := bson.NewObjectID()

	for _, l := range []model.Listing{
		{Owner: owner, City: "Accra", MonthlyRent: 200, TotalRooms: 2, AvailableRooms: 2, Status: model.ListingActive},
		{Owner: owner, City: "Accra", MonthlyRent: 600, TotalRooms: 2, AvailableRooms: 1, Status: model.ListingActive},
		{Owner: owner, City: "Lagos", MonthlyRent: 150, TotalRooms: 3, AvailableRooms: 3, Status: model.ListingActive},
		{Owner: owner, City: "accra", MonthlyRent: 100, TotalRooms: 1, AvailableRooms: 0, Status: model.ListingActive},
	} {
		listings.seed(l)
	}

	page, err := svc.Search(ctx, ListingQuery{City: "Accra", MaxRent: 500})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.Search(ctx, ListingQuery{City: "Accra", MinAvailableRooms: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.Search(ctx, ListingQuery{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Items, 1)

	page, err = svc.Search(ctx, ListingQuery{Limit: 1000})
	require.NoError(t, err)
	assert.EqualValues(t, 100, page.Limit)
}

func TestListingDelete(t *testing.T) {
	ctx := context.Background()
	listings := newFakeListings()
	svc := NewListingService(listings)
	owner := Actor{ID: bson.NewObjectID(), Role: model.RoleOwner}
	l := listings.seed(model.Listing{Owner: owner.ID, Title: "Flat", TotalRooms: 1, AvailableRooms: 1, Status: model.ListingActive})

	assert.ErrorIs(t, svc.Delete(ctx, Actor{ID: bson.NewObjectID(), Role: model.RoleOwner}, l.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, owner, l.ID))
	assert.ErrorIs(t, svc.Delete(ctx, owner, l.ID), ErrNotFound)
}

func TestProfileUpdateAndVerification(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers()
	svc := NewProfileService(users)
	id := users.seed(model.User{Name: "Lee", Email: "lee@example.com", VerificationStatus: model.VerificationUnverified})

	_, err := svc.Update(ctx, id, UpdateProfileParams{Name: ptr("  ")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	u, err := svc.Update(ctx, id, UpdateProfileParams{Phone: ptr("+233200000000")})
	require.NoError(t, err)
	assert.False(t, u.IsProfileComplete, "email is not verified yet")

	_, err = svc.RequestVerification(ctx, id)
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	require.NoError(t, users.MarkEmailVerified(ctx, "lee@example.com"))
	u, err = svc.Update(ctx, id, UpdateProfileParams{Name: ptr("Lee Park")})
	require.NoError(t, err)
	assert.True(t, u.IsProfileComplete)

	u, err = svc.RequestVerification(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationPending, u.VerificationStatus)

	_, err = svc.RequestVerification(ctx, id)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
