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

// BookingRepository persists bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*model.Booking, error)
	List(ctx context.Context, params BookingFilter) ([]*model.Booking, error)
	// Update applies params when the booking is still in status expected.
	// A booking that moved on returns ErrConflict.
	Update(ctx context.Context, id bson.ObjectID, expected model.BookingStatus, params UpdateBookingParams) (*model.Booking, error)
}

// BookingFilter selects bookings by participant, listing or status.
type BookingFilter struct {
	Student  *bson.ObjectID
	Owner    *bson.ObjectID
	Property *bson.ObjectID
	Status   model.BookingStatus
	Limit    int64
}

// UpdateBookingParams holds the optional booking fields.
type UpdateBookingParams struct {
	Status        *model.BookingStatus
	PaymentStatus *model.PaymentStatus
	PaidAt        *time.Time
}

const bookingCollection = "bookings"

type bookingMongoRepository struct {
	db  *mongo.Database
	now func() time.Time
}

// NewBookingMongoRepository creates the repository and ensures its indexes.
func NewBookingMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) BookingRepository {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "student", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "property", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := db.Collection(bookingCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create booking indexes")
	}
	return &bookingMongoRepository{db: db, now: time.Now}
}

func (r *bookingMongoRepository) coll() *mongo.Collection {
	return r.db.Collection(bookingCollection)
}

func (r *bookingMongoRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	now := r.now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.coll().InsertOne(ctx, booking)
	if err != nil {
		return nil, err
	}
	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}
	booking.ID = objectID
	return booking, nil
}

func (r *bookingMongoRepository) GetByID(ctx context.Context, id bson.ObjectID) (*model.Booking, error) {
	var booking model.Booking
	if err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (r *bookingMongoRepository) List(ctx context.Context, params BookingFilter) ([]*model.Booking, error) {
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
	bookings := []*model.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingMongoRepository) Update(
	ctx context.Context,
	id bson.ObjectID,
	expected model.BookingStatus,
	params UpdateBookingParams,
) (*model.Booking, error) {
	set := bson.M{"updatedAt": r.now().UTC()}
	if params.Status != nil {
		set["status"] = *params.Status
	}
	if params.PaymentStatus != nil {
		set["paymentStatus"] = *params.PaymentStatus
	}
	if params.PaidAt != nil {
		set["paidAt"] = *params.PaidAt
	}

	var booking model.Booking
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": expected},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, gerr := r.GetByID(ctx, id); gerr != nil {
				return nil, gerr
			}
			return nil, ErrConflict
		}
		return nil, err
	}
	return &booking, nil
}
