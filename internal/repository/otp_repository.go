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

// OTPRepository defines the one-time code operations.
type OTPRepository interface {
	// Create stores a new code.
	Create(ctx context.Context, otp *model.OTP) (*model.OTP, error)

	// Latest returns the newest code for identifier and type, used or not.
	Latest(ctx context.Context, identifier string, typ model.OTPType) (*model.OTP, error)

	// LatestUnused returns the newest code that has not been consumed.
	LatestUnused(ctx context.Context, identifier string, typ model.OTPType) (*model.OTP, error)

	// TakeAttempt records one verification attempt against an unused code
	// that has fewer than max attempts and returns the new count.  It
	// returns ErrConflict when the code is used or out of attempts.
	TakeAttempt(ctx context.Context, id bson.ObjectID, max int) (int, error)

	// MarkUsed consumes the code unless it is already used or has gone past
	// max attempts, in which case it returns ErrConflict.
	MarkUsed(ctx context.Context, id bson.ObjectID, max int) error

	// InvalidateUnused consumes every outstanding code for identifier and
	// type so only the newest code can be verified.
	InvalidateUnused(ctx context.Context, identifier string, typ model.OTPType) error
}

const otpCollection = "otps"

type otpMongoRepository struct {
	db *mongo.Database
}

// NewOTPMongoRepository creates the repository.  Expired codes are removed
// by the TTL index on expiresAt.
func NewOTPMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) OTPRepository {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "identifier", Value: 1}, {Key: "type", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	if _, err := db.Collection(otpCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create otp indexes")
	}

	return &otpMongoRepository{db: db}
}

func (r *otpMongoRepository) coll() *mongo.Collection {
	return r.db.Collection(otpCollection)
}

func (r *otpMongoRepository) Create(ctx context.Context, otp *model.OTP) (*model.OTP, error) {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	otp.Used = false
	otp.Attempts = 0

	result, err := r.coll().InsertOne(ctx, otp)
	if err != nil {
		return nil, err
	}
	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		otp.ID = objectID
	}
	return otp, nil
}

func (r *otpMongoRepository) latest(ctx context.Context, filter bson.M) (*model.OTP, error) {
	var otp model.OTP
	err := r.coll().FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&otp)
	if err != nil {
		return nil, notFound(err)
	}
	return &otp, nil
}

func (r *otpMongoRepository) Latest(ctx context.Context, identifier string, typ model.OTPType) (*model.OTP, error) {
	return r.latest(ctx, bson.M{"identifier": identifier, "type": typ})
}

func (r *otpMongoRepository) LatestUnused(ctx context.Context, identifier string, typ model.OTPType) (*model.OTP, error) {
	return r.latest(ctx, bson.M{"identifier": identifier, "type": typ, "used": false})
}

func (r *otpMongoRepository) TakeAttempt(ctx context.Context, id bson.ObjectID, max int) (int, error) {
	var otp model.OTP
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "used": false, "attempts": bson.M{"$lt": max}},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&otp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return otp.Attempts, nil
}

func (r *otpMongoRepository) MarkUsed(ctx context.Context, id bson.ObjectID, max int) error {
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": id, "used": false, "attempts": bson.M{"$lte": max}},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (r *otpMongoRepository) InvalidateUnused(ctx context.Context, identifier string, typ model.OTPType) error {
	_, err := r.coll().UpdateMany(ctx,
		bson.M{"identifier": identifier, "type": typ, "used": false},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	return nil
}
