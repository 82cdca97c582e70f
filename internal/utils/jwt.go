package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any access token that fails to parse or verify.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is the raw opaque token handed to the client. Only its
// SHA-256 hash is persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// AccessClaims are the fields carried in an access token. Kind tells
// whether Subject is a users row or a distributers row, since the two
// tables have independent id sequences.
type AccessClaims struct {
	Subject uint64
	Role    string
	Kind    string
}

// portalClaims is the wire form: sub holds the decimal id.
type portalClaims struct {
	Role string `json:"role"`
	Kind string `json:"kind,omitempty"`
	jwt.RegisteredClaims
}

// NewAccessToken builds and signs an HS256 JWT valid for ttlMin minutes.
func NewAccessToken(secret string, cl AccessClaims, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := portalClaims{
		Role: cl.Role,
		Kind: cl.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(cl.Subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry of an HS256 token and
// returns its claims. Tokens without kind predate distributer logins and
// are read as user tokens.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	var pc portalClaims
	tok, err := jwt.ParseWithClaims(raw, &pc, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	sub, err := strconv.ParseUint(pc.Subject, 10, 64)
	if err != nil || sub == 0 || pc.Role == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	cl := AccessClaims{Subject: sub, Role: pc.Role, Kind: pc.Kind}
	if cl.Kind == "" {
		cl.Kind = "user"
	}
	return cl, nil
}

// NewRefreshToken returns 48 random bytes hex-encoded, valid for ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: hex.EncodeToString(buf),
		Exp: time.Now().UTC().AddDate(0, 0, ttlDays),
	}, nil
}

// HashRefreshRaw is the lookup key stored in refresh_tokens.token_hash.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
