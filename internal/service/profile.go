package service

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/repository"
)

// UpdateProfileParams holds the editable profile fields.  Nil leaves a
// field unchanged.
type UpdateProfileParams struct {
	Name  *string
	Phone *string
}

// ProfileService manages profile fields and the verification request.
type ProfileService struct {
	users repository.UserRepository
}

// NewProfileService wires the profile module.
func NewProfileService(users repository.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

// Update changes name and phone and recomputes isProfileComplete.
func (s *ProfileService) Update(ctx context.Context, id bson.ObjectID, params UpdateProfileParams) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update := repository.UpdateProfileParams{}
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, invalid("name", "name cannot be empty")
		}
		update.Name = &name
		user.Name = name
	}
	if params.Phone != nil {
		phone := strings.TrimSpace(*params.Phone)
		update.Phone = &phone
		user.Phone = phone
	}
	complete := user.ProfileComplete()
	update.IsProfileComplete = &complete

	return s.users.UpdateProfile(ctx, id, update)
}

// RequestVerification queues the account for identity review.  The email
// must be verified and the profile complete first.
func (s *ProfileService) RequestVerification(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}
	if !user.ProfileComplete() {
		return nil, invalid("profile", "complete your name and phone before requesting verification")
	}
	switch user.VerificationStatus {
	case model.VerificationPending, model.VerificationVerified:
		return nil, ErrInvalidTransition
	}
	return s.users.SetVerificationStatus(ctx, id, model.VerificationPending)
}

// syncProfileComplete stores user's computed completeness when it drifted.
func syncProfileComplete(ctx context.Context, users repository.UserRepository, user *model.User) (*model.User, error) {
	complete := user.ProfileComplete()
	if complete == user.IsProfileComplete {
		return user, nil
	}
	return users.UpdateProfile(ctx, user.ID, repository.UpdateProfileParams{IsProfileComplete: &complete})
}
