package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/repository"
	"github.com/iliyamo/student-housing-api/internal/utils"
)

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     model.Role
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

// Session is a freshly issued token pair and the user it belongs to.
type Session struct {
	User         *model.User
	AccessToken  utils.AccessToken
	RefreshToken utils.RefreshToken
}

// AuthService issues and rotates credentials.
type AuthService struct {
	users  repository.UserRepository
	tokens *utils.TokenIssuer
	logger *zerolog.Logger
	now    func() time.Time
}

// NewAuthService wires the auth module.
func NewAuthService(users repository.UserRepository, tokens *utils.TokenIssuer, logger *zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger, now: time.Now}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*Session, error) {
	role := params.Role
	if role == "" {
		role = model.RoleStudent
	}
	if !role.Valid() {
		return nil, invalid("role", "role must be one of student owner")
	}

	hash, err := utils.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(params.Name),
		Email:        params.Email,
		Phone:        strings.TrimSpace(params.Phone),
		PasswordHash: hash,
		Role:         role,
	}
	user, err = s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.createSession(ctx, user)
}

// Login verifies credentials and issues a new token pair.  Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := utils.VerifyPassword(user.PasswordHash, params.Password)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("password hash could not be verified")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.createSession(ctx, user)
}

// Refresh exchanges a refresh token for a new pair.  The presented token is
// consumed by a single conditional update, so replaying it, even
// concurrently, fails.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}
	hash := utils.HashRefreshRaw(raw)

	user, err := s.users.GetByRefreshHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	now := s.now().UTC()
	var current *model.RefreshToken
	for i := range user.RefreshTokens {
		if user.RefreshTokens[i].TokenHash == hash {
			current = &user.RefreshTokens[i]
			break
		}
	}
	if current == nil {
		return nil, ErrInvalidRefreshToken
	}
	if !now.Before(current.ExpiresAt) {
		if err := s.users.RemoveRefreshToken(ctx, user.ID, hash); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to drop expired refresh token")
		}
		return nil, ErrInvalidRefreshToken
	}

	refresh, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	next := model.RefreshToken{
		TokenHash: utils.HashRefreshRaw(refresh.Raw),
		IssuedAt:  now,
		ExpiresAt: refresh.Exp,
	}
	if err := s.users.RotateRefreshToken(ctx, user.ID, hash, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	access, err := s.tokens.NewAccessToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes one refresh token, or every token of userID when raw is
// empty.  At least one of them must be supplied.
func (s *AuthService) Logout(ctx context.Context, userID *bson.ObjectID, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		user, err := s.users.GetByRefreshHash(ctx, hash)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}
		return s.users.RemoveRefreshToken(ctx, user.ID, hash)
	}
	if userID == nil {
		return ErrInvalidRefreshToken
	}
	return s.users.ClearRefreshTokens(ctx, *userID)
}

// Me returns the account behind an access token.
func (s *AuthService) Me(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// ResetPassword sets a new password for the account whose password_reset
// code was verified by otp.  Every session is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, otp *OTPService, email, code, password string) error {
	if err := otp.Verify(ctx, email, model.OTPPasswordReset, code); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, user.ID, hash)
}

func (s *AuthService) createSession(ctx context.Context, user *model.User) (*Session, error) {
	access, err := s.tokens.NewAccessToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	tok := model.RefreshToken{
		TokenHash: utils.HashRefreshRaw(refresh.Raw),
		IssuedAt:  s.now().UTC(),
		ExpiresAt: refresh.Exp,
	}
	if err := s.users.AddRefreshToken(ctx, user.ID, tok); err != nil {
		return nil, err
	}
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}
