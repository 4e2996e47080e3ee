package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OTP limits.
const (
	OTPLength      = 6
	OTPTTL         = 10 * time.Minute
	OTPMaxAttempts = 5
	OTPCooldown    = 60 * time.Second
)

// OTPType scopes a code to one purpose.
type OTPType string

const (
	OTPEmailVerification OTPType = "email_verification"
	OTPPhoneVerification OTPType = "phone_verification"
	OTPPasswordReset     OTPType = "password_reset"
)

// Valid reports whether t is a known OTP purpose.
func (t OTPType) Valid() bool {
	switch t {
	case OTPEmailVerification, OTPPhoneVerification, OTPPasswordReset:
		return true
	}
	return false
}

// OTP is a one-time code awaiting verification.  Documents are removed by
// a TTL index on ExpiresAt.
type OTP struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	Identifier string        `bson:"identifier"`
	Type       OTPType       `bson:"type"`
	CodeHash   string        `bson:"codeHash"`
	ExpiresAt  time.Time     `bson:"expiresAt"`
	Used       bool          `bson:"used"`
	Attempts   int           `bson:"attempts"`
	CreatedAt  time.Time     `bson:"createdAt"`
}
