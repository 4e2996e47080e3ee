package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/repository"
	"github.com/iliyamo/student-housing-api/internal/utils"
)

// Sender delivers a code to an identifier.
type Sender interface {
	SendOTP(ctx context.Context, to, code, purpose string) error
}

// OTPService issues and verifies one-time codes.
type OTPService struct {
	otps   repository.OTPRepository
	users  repository.UserRepository
	sender Sender
	logger *zerolog.Logger
	now    func() time.Time

	newCode func() (string, error)
}

// NewOTPService wires the OTP module.
func NewOTPService(otps repository.OTPRepository, users repository.UserRepository, sender Sender, logger *zerolog.Logger) *OTPService {
	return &OTPService{
		otps:    otps,
		users:   users,
		sender:  sender,
		logger:  logger,
		now:     time.Now,
		newCode: func() (string, error) { return utils.NewNumericCode(model.OTPLength) },
	}
}

// NormalizeIdentifier lower-cases and trims an email or phone number.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Send issues a fresh code unless one was issued within the cooldown.
// Outstanding codes for the same purpose are invalidated first.  It returns
// the expiry of the new code.
func (s *OTPService) Send(ctx context.Context, identifier string, typ model.OTPType) (time.Time, error) {
	identifier = NormalizeIdentifier(identifier)
	if !typ.Valid() {
		return time.Time{}, invalid("type", "unknown otp type")
	}
	now := s.now().UTC()

	last, err := s.otps.Latest(ctx, identifier, typ)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return time.Time{}, err
	}
	if last != nil {
		if wait := last.CreatedAt.Add(model.OTPCooldown).Sub(now); wait > 0 {
			return time.Time{}, &CooldownError{RetryAfter: wait}
		}
	}

	code, err := s.newCode()
	if err != nil {
		return time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := utils.HashCode(code)
	if err != nil {
		return time.Time{}, fmt.Errorf("hash otp: %w", err)
	}

	if err := s.otps.InvalidateUnused(ctx, identifier, typ); err != nil {
		return time.Time{}, err
	}
	otp, err := s.otps.Create(ctx, &model.OTP{
		Identifier: identifier,
		Type:       typ,
		CodeHash:   hash,
		ExpiresAt:  now.Add(model.OTPTTL),
		CreatedAt:  now,
	})
	if err != nil {
		return time.Time{}, err
	}

	if err := s.sender.SendOTP(ctx, identifier, code, string(typ)); err != nil {
		// The code can never reach the user, so do not let it block a retry.
		if merr := s.otps.MarkUsed(ctx, otp.ID, model.OTPMaxAttempts); merr != nil {
			s.logger.Warn().Err(merr).Str("identifier", identifier).Msg("failed to retire undelivered otp")
		}
		return time.Time{}, err
	}
	s.logger.Info().Str("identifier", identifier).Str("type", string(typ)).Msg("otp issued")
	return otp.ExpiresAt, nil
}

// Verify checks code against the newest unused code for identifier.  The
// checks run in order: missing, expired, locked by attempts, mismatch.  An
// attempt is taken atomically before the code is compared, so concurrent
// guesses share the same budget.  A match consumes the code; a second verify
// with it fails.
func (s *OTPService) Verify(ctx context.Context, identifier string, typ model.OTPType, code string) error {
	identifier = NormalizeIdentifier(identifier)
	if !typ.Valid() {
		return invalid("type", "unknown otp type")
	}

	otp, err := s.otps.LatestUnused(ctx, identifier, typ)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOTPNotFound
		}
		return err
	}
	if !s.now().UTC().Before(otp.ExpiresAt) {
		return ErrOTPExpired
	}
	if otp.Attempts >= model.OTPMaxAttempts {
		return ErrOTPMaxAttempts
	}

	attempts, err := s.otps.TakeAttempt(ctx, otp.ID, model.OTPMaxAttempts)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return s.refusedAttempt(ctx, otp, typ)
		}
		return err
	}

	if !utils.VerifyCode(otp.CodeHash, strings.TrimSpace(code)) {
		remaining := model.OTPMaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return &InvalidOTPError{Remaining: remaining}
	}

	if err := s.otps.MarkUsed(ctx, otp.ID, model.OTPMaxAttempts); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrOTPNotFound
		}
		return err
	}

	if typ == model.OTPEmailVerification {
		if err := s.users.MarkEmailVerified(ctx, identifier); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		user, err := s.users.GetByEmail(ctx, identifier)
		if err != nil {
			return err
		}
		if _, err := syncProfileComplete(ctx, s.users, user); err != nil {
			return err
		}
	}
	return nil
}

// refusedAttempt explains why no attempt could be taken on otp: either a
// concurrent verify consumed it or its attempts ran out.
func (s *OTPService) refusedAttempt(ctx context.Context, otp *model.OTP, typ model.OTPType) error {
	current, err := s.otps.LatestUnused(ctx, otp.Identifier, typ)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOTPNotFound
		}
		return err
	}
	if current.ID != otp.ID {
		return ErrOTPNotFound
	}
	return ErrOTPMaxAttempts
}
