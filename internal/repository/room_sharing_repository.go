package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/student-housing-api/internal/model"
)

// RoomSharingRepository persists room shares and their applications.
type RoomSharingRepository interface {
	Create(ctx context.Context, share *model.RoomSharing) (*model.RoomSharing, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*model.RoomSharing, error)
	List(ctx context.Context, params RoomSharingFilter) ([]*model.RoomSharing, error)

	// AddApplication appends app while the share is active and the
	// applicant is neither a participant nor an open applicant.
	AddApplication(ctx context.Context, id bson.ObjectID, app model.Application) (*model.RoomSharing, error)
	// AcceptApplication marks a pending application accepted and adds the
	// applicant to the participants while capacity remains.
	AcceptApplication(ctx context.Context, id, appID, applicant bson.ObjectID, maxParticipants int) (*model.RoomSharing, error)
	RejectApplication(ctx context.Context, id, appID bson.ObjectID) (*model.RoomSharing, error)

	// SetStatus moves an active share to status.  reason is stored for
	// cancellations.
	SetStatus(ctx context.Context, id bson.ObjectID, status model.RoomSharingStatus, reason string) (*model.RoomSharing, error)

	// ActiveWithListings returns every active share joined with its
	// listing.  Listing is nil when the property no longer exists.
	ActiveWithListings(ctx context.Context) ([]RoomSharingWithListing, error)
}

// RoomSharingFilter narrows share listings.
type RoomSharingFilter struct {
	Property    *bson.ObjectID
	Participant *bson.ObjectID
	Status      model.RoomSharingStatus
	Limit       int64
}

// RoomSharingWithListing is a share joined to its property.
type RoomSharingWithListing struct {
	model.RoomSharing `bson:",inline"`
	Listing           *model.Listing `bson:"listing,omitempty"`
}

const roomSharingCollection = "roomsharings"

type roomSharingMongoRepository struct {
	db  *mongo.Database
	now func() time.Time
}

// NewRoomSharingMongoRepository creates the repository and ensures its
// indexes.
func NewRoomSharingMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) RoomSharingRepository {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}}},
		{Keys: bson.D{{Key: "property", Value: 1}}},
		{Keys: bson.D{{Key: "participants", Value: 1}}},
	}
	if _, err := db.Collection(roomSharingCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create room sharing indexes")
	}
	return &roomSharingMongoRepository{db: db, now: time.Now}
}

func (r *roomSharingMongoRepository) coll() *mongo.Collection {
	return r.db.Collection(roomSharingCollection)
}

func (r *roomSharingMongoRepository) Create(ctx context.Context, share *model.RoomSharing) (*model.RoomSharing, error) {
	now := r.now().UTC()
	share.CreatedAt = now
	share.UpdatedAt = now
	if share.Applications == nil {
		share.Applications = []model.Application{}
	}

	result, err := r.coll().InsertOne(ctx, share)
	if err != nil {
		return nil, err
	}
	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}
	share.ID = objectID
	return share, nil
}

func (r *roomSharingMongoRepository) GetByID(ctx context.Context, id bson.ObjectID) (*model.RoomSharing, error) {
	var share model.RoomSharing
	if err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&share); err != nil {
		return nil, notFound(err)
	}
	return &share, nil
}

func (r *roomSharingMongoRepository) List(ctx context.Context, params RoomSharingFilter) ([]*model.RoomSharing, error) {
	filter := bson.M{}
	if params.Property != nil {
		filter["property"] = *params.Property
	}
	if params.Participant != nil {
		filter["participants"] = *params.Participant
	}
	if params.Status != "" {
		filter["status"] = params.Status
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	cursor, err := r.coll().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	shares := []*model.RoomSharing{}
	if err := cursor.All(ctx, &shares); err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *roomSharingMongoRepository) AddApplication(
	ctx context.Context,
	id bson.ObjectID,
	app model.Application,
) (*model.RoomSharing, error) {
	filter := bson.M{
		"_id":          id,
		"status":       model.RoomSharingActive,
		"participants": bson.M{"$ne": app.Applicant},
		"applications": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"applicant": app.Applicant,
			"status":    bson.M{"$ne": model.ApplicationRejected},
		}}},
	}
	update := bson.M{
		"$push": bson.M{"applications": app},
		"$set":  bson.M{"updatedAt": r.now().UTC()},
	}
	return r.conditionalUpdate(ctx, id, filter, update, nil)
}

func (r *roomSharingMongoRepository) AcceptApplication(
	ctx context.Context,
	id, appID, applicant bson.ObjectID,
	maxParticipants int,
) (*model.RoomSharing, error) {
	if maxParticipants < 1 {
		return nil, ErrConflict
	}
	now := r.now().UTC()
	filter := bson.M{
		"_id":    id,
		"status": model.RoomSharingActive,
		"applications": bson.M{"$elemMatch": bson.M{
			"_id":    appID,
			"status": model.ApplicationPending,
		}},
		// participants.N exists only when the list holds more than N entries.
		fmt.Sprintf("participants.%d", maxParticipants-1): bson.M{"$exists": false},
	}
	set, arrayFilters := respondApplication(appID, model.ApplicationAccepted, now)
	update := bson.M{
		"$set":      set,
		"$addToSet": bson.M{"participants": applicant},
	}
	return r.conditionalUpdate(ctx, id, filter, update, arrayFilters)
}

func (r *roomSharingMongoRepository) RejectApplication(ctx context.Context, id, appID bson.ObjectID) (*model.RoomSharing, error) {
	now := r.now().UTC()
	filter := bson.M{
		"_id": id,
		"applications": bson.M{"$elemMatch": bson.M{
			"_id":    appID,
			"status": model.ApplicationPending,
		}},
	}
	set, arrayFilters := respondApplication(appID, model.ApplicationRejected, now)
	return r.conditionalUpdate(ctx, id, filter, bson.M{"$set": set}, arrayFilters)
}

func (r *roomSharingMongoRepository) SetStatus(
	ctx context.Context,
	id bson.ObjectID,
	status model.RoomSharingStatus,
	reason string,
) (*model.RoomSharing, error) {
	now := r.now().UTC()
	set := bson.M{"status": status, "updatedAt": now}
	if status == model.RoomSharingCancelled {
		set["cancellationReason"] = reason
		set["deactivatedAt"] = now
	}
	filter := bson.M{"_id": id, "status": model.RoomSharingActive}
	return r.conditionalUpdate(ctx, id, filter, bson.M{"$set": set}, nil)
}

// conditionalUpdate runs update against filter and reports ErrNotFound or
// ErrConflict when nothing matched.
// respondApplication builds the $set for answering one application.  The
// element is addressed through an array filter on its id because the query
// also walks the participants array.
func respondApplication(appID bson.ObjectID, status model.ApplicationStatus, now time.Time) (bson.M, []any) {
	set := bson.M{
		"applications.$[app].status":      status,
		"applications.$[app].respondedAt": now,
		"updatedAt":                       now,
	}
	return set, []any{bson.M{"app._id": appID}}
}

func (r *roomSharingMongoRepository) conditionalUpdate(
	ctx context.Context,
	id bson.ObjectID,
	filter, update bson.M,
	arrayFilters []any,
) (*model.RoomSharing, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if len(arrayFilters) > 0 {
		opts.SetArrayFilters(arrayFilters)
	}
	var share model.RoomSharing
	err := r.coll().FindOneAndUpdate(ctx, filter, update, opts).Decode(&share)
	if err == nil {
		return &share, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if _, gerr := r.GetByID(ctx, id); gerr != nil {
		return nil, gerr
	}
	return nil, ErrConflict
}

func (r *roomSharingMongoRepository) ActiveWithListings(ctx context.Context) ([]RoomSharingWithListing, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: model.RoomSharingActive}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: listingCollection},
			{Key: "localField", Value: "property"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "listing"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$listing"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}

	cursor, err := r.coll().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var out []RoomSharingWithListing
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
