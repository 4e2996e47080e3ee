package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/student-housing-api/internal/model"
)

// UserRepository defines the user and refresh-token operations.  Refresh
// tokens are embedded in the user document, so every token mutation is a
// single-document atomic update.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByRefreshHash(ctx context.Context, tokenHash string) (*model.User, error)

	// AddRefreshToken appends tok and keeps only the newest MaxRefreshTokens.
	AddRefreshToken(ctx context.Context, userID bson.ObjectID, tok model.RefreshToken) error
	// RotateRefreshToken swaps oldHash for tok.  It returns ErrNotFound
	// when oldHash is no longer present, so a token can be consumed once.
	RotateRefreshToken(ctx context.Context, userID bson.ObjectID, oldHash string, tok model.RefreshToken) error
	RemoveRefreshToken(ctx context.Context, userID bson.ObjectID, tokenHash string) error
	ClearRefreshTokens(ctx context.Context, userID bson.ObjectID) error

	UpdateProfile(ctx context.Context, id bson.ObjectID, params UpdateProfileParams) (*model.User, error)
	SetVerificationStatus(ctx context.Context, id bson.ObjectID, status model.VerificationStatus) (*model.User, error)
	MarkEmailVerified(ctx context.Context, email string) error
	// SetPassword stores a new hash and drops every refresh token.
	SetPassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
}

// UpdateProfileParams holds the optional profile fields.  Nil fields are
// left untouched.
type UpdateProfileParams struct {
	Name              *string
	Phone             *string
	IsProfileComplete *bool
}

const userCollection = "users"

type userMongoRepository struct {
	db  *mongo.Database
	now func() time.Time
}

// NewUserMongoRepository creates the repository and ensures its indexes.
func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "refreshTokens.tokenHash", Value: 1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db, now: time.Now}
}

func (r *userMongoRepository) coll() *mongo.Collection {
	return r.db.Collection(userCollection)
}

func (r *userMongoRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	now := r.now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.RefreshTokens == nil {
		user.RefreshTokens = []model.RefreshToken{}
	}
	if user.VerificationStatus == "" {
		user.VerificationStatus = model.VerificationUnverified
	}

	result, err := r.coll().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}
	user.ID = objectID

	return user, nil
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.coll().FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userMongoRepository) GetByID(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userMongoRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *userMongoRepository) GetByRefreshHash(ctx context.Context, tokenHash string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"refreshTokens.tokenHash": tokenHash})
}

func (r *userMongoRepository) AddRefreshToken(ctx context.Context, userID bson.ObjectID, tok model.RefreshToken) error {
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push": bson.M{
				"refreshTokens": bson.M{
					"$each":  []model.RefreshToken{tok},
					"$slice": -model.MaxRefreshTokens,
				},
			},
			"$set": bson.M{"updatedAt": r.now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userMongoRepository) RotateRefreshToken(
	ctx context.Context,
	userID bson.ObjectID,
	oldHash string,
	tok model.RefreshToken,
) error {
	now := r.now().UTC()

	// Drop the presented token and anything expired, append the new one and
	// keep the newest entries.  The filter on oldHash makes the swap a
	// compare-and-set: a second refresh with the same token matches nothing.
	kept := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: "$refreshTokens"},
		{Key: "cond", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$ne", Value: bson.A{"$$this.tokenHash", oldHash}}},
			bson.D{{Key: "$gt", Value: bson.A{"$$this.expiresAt", now}}},
		}}}},
	}}}
	appended := bson.D{{Key: "$concatArrays", Value: bson.A{kept, bson.A{tok}}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "refreshTokens", Value: bson.D{{Key: "$slice", Value: bson.A{appended, -model.MaxRefreshTokens}}}},
			{Key: "updatedAt", Value: now},
		}}},
	}

	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": userID, "refreshTokens.tokenHash": oldHash},
		pipeline,
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userMongoRepository) RemoveRefreshToken(ctx context.Context, userID bson.ObjectID, tokenHash string) error {
	_, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"refreshTokens": bson.M{"tokenHash": tokenHash}},
			"$set":  bson.M{"updatedAt": r.now().UTC()},
		},
	)
	return err
}

func (r *userMongoRepository) ClearRefreshTokens(ctx context.Context, userID bson.ObjectID) error {
	_, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"refreshTokens": bson.A{}, "updatedAt": r.now().UTC()}},
	)
	return err
}

func (r *userMongoRepository) UpdateProfile(
	ctx context.Context,
	id bson.ObjectID,
	params UpdateProfileParams,
) (*model.User, error) {
	updateMap := bson.M{}
	if params.Name != nil {
		updateMap["name"] = *params.Name
	}
	if params.Phone != nil {
		updateMap["phone"] = *params.Phone
	}
	if params.IsProfileComplete != nil {
		updateMap["isProfileComplete"] = *params.IsProfileComplete
	}
	if len(updateMap) == 0 {
		return r.GetByID(ctx, id)
	}
	updateMap["updatedAt"] = r.now().UTC()

	return r.findOneAndSet(ctx, id, updateMap)
}

func (r *userMongoRepository) SetVerificationStatus(
	ctx context.Context,
	id bson.ObjectID,
	status model.VerificationStatus,
) (*model.User, error) {
	return r.findOneAndSet(ctx, id, bson.M{"verificationStatus": status, "updatedAt": r.now().UTC()})
}

func (r *userMongoRepository) findOneAndSet(ctx context.Context, id bson.ObjectID, set bson.M) (*model.User, error) {
	var user model.User
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userMongoRepository) MarkEmailVerified(ctx context.Context, email string) error {
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))},
		bson.M{"$set": bson.M{"isEmailVerified": true, "updatedAt": r.now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userMongoRepository) SetPassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"passwordHash":  passwordHash,
			"refreshTokens": bson.A{},
			"updatedAt":     r.now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
