package utils

import (
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns an encoded argon2id hash.
func HashPassword(plain string) (string, error) {
	cfg := argon2.DefaultConfig()
	encoded, err := cfg.HashEncoded([]byte(plain))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// VerifyPassword compares plain against hash.  Accounts created before the
// move to argon2 still carry bcrypt hashes, which are accepted as well.
func VerifyPassword(hash, plain string) (bool, error) {
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return false, nil
		}
		return err == nil, err
	}
	return argon2.VerifyEncoded([]byte(plain), []byte(hash))
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
