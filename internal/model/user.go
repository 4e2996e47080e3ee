package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MaxRefreshTokens is the number of refresh tokens kept per user.  Older
// entries are evicted when a new one is issued.
const MaxRefreshTokens = 5

// VerificationStatus tracks the manual identity check of a profile.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
)

// User is an account in the `users` collection.
type User struct {
	ID                 bson.ObjectID      `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	Email              string             `bson:"email" json:"email"`
	Phone              string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash       string             `bson:"passwordHash" json:"-"`
	Role               Role               `bson:"role" json:"role"`
	IsEmailVerified    bool               `bson:"isEmailVerified" json:"isEmailVerified"`
	IsPhoneVerified    bool               `bson:"isPhoneVerified" json:"isPhoneVerified"`
	IsProfileComplete  bool               `bson:"isProfileComplete" json:"isProfileComplete"`
	VerificationStatus VerificationStatus `bson:"verificationStatus" json:"verificationStatus"`
	RefreshTokens      []RefreshToken     `bson:"refreshTokens" json:"-"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RefreshToken is one active refresh credential embedded in a user.  Only
// the SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	TokenHash string    `bson:"tokenHash"`
	IssuedAt  time.Time `bson:"issuedAt"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// ProfileComplete reports whether the fields required to transact are set.
func (u *User) ProfileComplete() bool {
	return u.Name != "" && u.Phone != "" && u.IsEmailVerified
}
