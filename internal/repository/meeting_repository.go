package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/student-housing-api/internal/model"
)

// MeetingRepository persists visit requests.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*model.Meeting, error)
	List(ctx context.Context, params MeetingFilter) ([]*model.Meeting, error)
	// Save replaces the stored meeting when its version still equals
	// meeting.Version, then bumps the version.  A stale write returns
	// ErrConflict.
	Save(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error)
	// HasOpenRequest reports whether student already has a non-terminal
	// meeting for property.
	HasOpenRequest(ctx context.Context, student, property bson.ObjectID) (bool, error)
}

// MeetingFilter selects meetings a user takes part in.
type MeetingFilter struct {
	Student  *bson.ObjectID
	Owner    *bson.ObjectID
	Property *bson.ObjectID
	Status   model.MeetingStatus
	Limit    int64
}

var openMeetingStatuses = []model.MeetingStatus{
	model.MeetingPending,
	model.MeetingConfirmed,
	model.MeetingRescheduled,
	model.MeetingPendingOwnerResponse,
}

const meetingCollection = "meetings"

type meetingMongoRepository struct {
	db  *mongo.Database
	now func() time.Time
}

// NewMeetingMongoRepository creates the repository and ensures its indexes.
func NewMeetingMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) MeetingRepository {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "student", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "property", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := db.Collection(meetingCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create meeting indexes")
	}
	return &meetingMongoRepository{db: db, now: time.Now}
}

func (r *meetingMongoRepository) coll() *mongo.Collection {
	return r.db.Collection(meetingCollection)
}

func (r *meetingMongoRepository) Create(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	now := r.now().UTC()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now
	meeting.Version = 1

	result, err := r.coll().InsertOne(ctx, meeting)
	if err != nil {
		return nil, err
	}
	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}
	meeting.ID = objectID
	return meeting, nil
}

func (r *meetingMongoRepository) GetByID(ctx context.Context, id bson.ObjectID) (*model.Meeting, error) {
	var meeting model.Meeting
	if err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&meeting); err != nil {
		return nil, notFound(err)
	}
	return &meeting, nil
}

func (r *meetingMongoRepository) List(ctx context.Context, params MeetingFilter) ([]*model.Meeting, error) {
	filter := bson.M{}
	if params.Student != nil {
		filter["student"] = *params.Student
	}
	if params.Owner != nil {
		filter["owner"] = *params.Owner
	}
	if params.Property != nil {
		filter["property"] = *params.Property
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
	meetings := []*model.Meeting{}
	if err := cursor.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

func (r *meetingMongoRepository) Save(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	expected := meeting.Version
	meeting.Version = expected + 1
	meeting.UpdatedAt = r.now().UTC()

	var saved model.Meeting
	err := r.coll().FindOneAndReplace(ctx,
		bson.M{"_id": meeting.ID, "version": expected},
		meeting,
		options.FindOneAndReplace().SetReturnDocument(options.After),
	).Decode(&saved)
	if err != nil {
		meeting.Version = expected
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, gerr := r.GetByID(ctx, meeting.ID); gerr != nil {
				return nil, gerr
			}
			return nil, ErrConflict
		}
		return nil, err
	}
	return &saved, nil
}

func (r *meetingMongoRepository) HasOpenRequest(ctx context.Context, student, property bson.ObjectID) (bool, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{
		"student":  student,
		"property": property,
		"status":   bson.M{"$in": openMeetingStatuses},
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
