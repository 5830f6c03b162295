package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenDecode reports a malformed or unparseable access token.
var ErrTokenDecode = errors.New("token decode failed")

// Claims is the access-token payload shape the API issues: a numeric user id,
// the account email (older tokens carry it under "username"), and the
// registered expiry claim.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity returns the email claim, falling back to username. The API sets
// username = email at registration, so the two are interchangeable.
func (c *Claims) Identity() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Username
}

// DecodeAccessToken extracts the claims without verifying the signature.
// The client never holds the signing secret; the decoded identity is for
// display only and the server re-validates the token on every call.
func DecodeAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenDecode, err)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user_id claim", ErrTokenDecode)
	}
	return claims, nil
}
