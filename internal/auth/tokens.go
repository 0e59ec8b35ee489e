package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	purposeAccess         = "access"
	purposeSpotifyConnect = "spotify_connect"

	stateTTL = 10 * time.Minute
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	UserID  uint   `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func signToken(secret string, userID uint, purpose string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func parseToken(secret, tokenStr, purpose string) (uint, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Purpose != purpose || c.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return c.UserID, nil
}

// GenerateAccessToken issues an organizer session token.
func GenerateAccessToken(secret string, userID uint, ttl time.Duration) (string, time.Time, error) {
	return signToken(secret, userID, purposeAccess, ttl, time.Now())
}

// ParseAccessToken returns the organizer ID carried by a valid access token.
func ParseAccessToken(secret, tokenStr string) (uint, error) {
	return parseToken(secret, tokenStr, purposeAccess)
}

// The OAuth state parameter is a short-lived signed token naming the
// organizer, so the callback needs no server-side session.
func generateState(secret string, userID uint) (string, error) {
	state, _, err := signToken(secret, userID, purposeSpotifyConnect, stateTTL, time.Now())
	return state, err
}

func parseState(secret, state string) (uint, error) {
	return parseToken(secret, state, purposeSpotifyConnect)
}
