package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is where bcrypt stops reading input. Longer passwords
// are refused instead of silently truncated.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password too long")

// passwordCost maps a configured cost onto bcrypt's accepted range.
func passwordCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// HashPassword produces the password_hash stored for users and distributers.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost(cost))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches a stored hash. An account
// row without a hash never matches.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnPasswordCheck spends about as long as hashing at cost. Login calls it
// for unknown e-mails so timing does not reveal which accounts exist.
func BurnPasswordCheck(plain string, cost int) {
	if len(plain) > MaxPasswordBytes {
		plain = plain[:MaxPasswordBytes]
	}
	_, _ = bcrypt.GenerateFromPassword([]byte(plain), passwordCost(cost))
}
