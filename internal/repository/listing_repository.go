package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/student-housing-api/internal/model"
)

// ListingRepository persists properties.
type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) (*model.Listing, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*model.Listing, error)
	// GetByIDs returns the listings that still exist, keyed by id.
	GetByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*model.Listing, error)
	List(ctx context.Context, params ListingFilter) ([]*model.Listing, int64, error)
	// Update applies params to a listing owned by owner.
	Update(ctx context.Context, id, owner bson.ObjectID, params UpdateListingParams) (*model.Listing, error)
	Delete(ctx context.Context, id, owner bson.ObjectID) error
	// AdjustAvailableRooms adds delta to availableRooms, refusing to go
	// below zero or above totalRooms.  It returns ErrConflict when the
	// bound would be crossed.
	AdjustAvailableRooms(ctx context.Context, id bson.ObjectID, delta int) error
}

// ListingFilter narrows public and owner listing queries.
type ListingFilter struct {
	Owner             *bson.ObjectID
	City              string
	MaxRent           float64
	MinAvailableRooms int
	Status            model.ListingStatus
	Limit             int64
	Offset            int64
}

// UpdateListingParams defines the optional listing fields.  AvailableRooms
// is recomputed by the caller when TotalRooms changes.
type UpdateListingParams struct {
	Title          *string
	Description    *string
	Address        *string
	City           *string
	MonthlyRent    *float64
	TotalRooms     *int
	AvailableRooms *int
	Amenities      []string
	Images         []string
	Status         *model.ListingStatus
}

const listingCollection = "listings"

type listingMongoRepository struct {
	db  *mongo.Database
	now func() time.Time
}

// NewListingMongoRepository creates the repository and ensures its indexes.
func NewListingMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) ListingRepository {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "city", Value: 1}, {Key: "monthlyRent", Value: 1}}},
	}
	if _, err := db.Collection(listingCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create listing indexes")
	}
	return &listingMongoRepository{db: db, now: time.Now}
}

func (r *listingMongoRepository) coll() *mongo.Collection {
	return r.db.Collection(listingCollection)
}

func (r *listingMongoRepository) Create(ctx context.Context, listing *model.Listing) (*model.Listing, error) {
	now := r.now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	if listing.Status == "" {
		listing.Status = model.ListingActive
	}

	result, err := r.coll().InsertOne(ctx, listing)
	if err != nil {
		return nil, err
	}
	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}
	listing.ID = objectID
	return listing, nil
}

func (r *listingMongoRepository) GetByID(ctx context.Context, id bson.ObjectID) (*model.Listing, error) {
	var listing model.Listing
	if err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&listing); err != nil {
		return nil, notFound(err)
	}
	return &listing, nil
}

func (r *listingMongoRepository) GetByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*model.Listing, error) {
	out := make(map[bson.ObjectID]*model.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.coll().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var listings []*model.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}
	for _, l := range listings {
		out[l.ID] = l
	}
	return out, nil
}

func (r *listingMongoRepository) List(ctx context.Context, params ListingFilter) ([]*model.Listing, int64, error) {
	filter := bson.M{}
	if params.Owner != nil {
		filter["owner"] = *params.Owner
	}
	if params.City != "" {
		filter["city"] = bson.M{"$regex": "^" + regexp.QuoteMeta(params.City) + "$", "$options": "i"}
	}
	if params.MaxRent > 0 {
		filter["monthlyRent"] = bson.M{"$lte": params.MaxRent}
	}
	if params.MinAvailableRooms > 0 {
		filter["availableRooms"] = bson.M{"$gte": params.MinAvailableRooms}
	}
	if params.Status != "" {
		filter["status"] = params.Status
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	findOptions := options.Find().
		SetLimit(limit).
		SetSkip(params.Offset).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	total, err := r.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.coll().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	listings := make([]*model.Listing, 0, limit)
	for cursor.Next(ctx) {
		var l model.Listing
		if err := cursor.Decode(&l); err != nil {
			return nil, 0, err
		}
		listings = append(listings, &l)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *listingMongoRepository) Update(
	ctx context.Context,
	id, owner bson.ObjectID,
	params UpdateListingParams,
) (*model.Listing, error) {
	set := bson.M{"updatedAt": r.now().UTC()}
	if params.Title != nil {
		set["title"] = *params.Title
	}
	if params.Description != nil {
		set["description"] = *params.Description
	}
	if params.Address != nil {
		set["address"] = *params.Address
	}
	if params.City != nil {
		set["city"] = *params.City
	}
	if params.MonthlyRent != nil {
		set["monthlyRent"] = *params.MonthlyRent
	}
	if params.TotalRooms != nil {
		set["totalRooms"] = *params.TotalRooms
	}
	if params.AvailableRooms != nil {
		set["availableRooms"] = *params.AvailableRooms
	}
	if params.Amenities != nil {
		set["amenities"] = params.Amenities
	}
	if params.Images != nil {
		set["images"] = params.Images
	}
	if params.Status != nil {
		set["status"] = *params.Status
	}

	var listing model.Listing
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&listing)
	if err != nil {
		return nil, r.ownershipError(ctx, id, err)
	}
	return &listing, nil
}

func (r *listingMongoRepository) Delete(ctx context.Context, id, owner bson.ObjectID) error {
	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return r.ownershipError(ctx, id, mongo.ErrNoDocuments)
	}
	return nil
}

// ownershipError distinguishes a missing listing from one owned by someone
// else after an owner-scoped write matched nothing.
func (r *listingMongoRepository) ownershipError(ctx context.Context, id bson.ObjectID, err error) error {
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	n, cerr := r.coll().CountDocuments(ctx, bson.M{"_id": id})
	if cerr != nil {
		return cerr
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrForbidden
}

func (r *listingMongoRepository) AdjustAvailableRooms(ctx context.Context, id bson.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["availableRooms"] = bson.M{"$gte": -delta}
	} else {
		filter["$expr"] = bson.M{"$lte": bson.A{bson.M{"$add": bson.A{"$availableRooms", delta}}, "$totalRooms"}}
	}

	res, err := r.coll().UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"availableRooms": delta},
		"$set": bson.M{"updatedAt": r.now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}
