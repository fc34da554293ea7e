package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Dashboard session tokens. There is exactly one operator session (the
// connected business account), so a single HS256 secret and no refresh or
// revocation machinery is enough.

const sessionTTL = 7 * 24 * time.Hour

type SessionClaims struct {
	InstagramAccountID string `json:"instagram_account_id"`
	jwt.RegisteredClaims
}

// IssueSessionToken creates a signed session token after a successful
// Facebook OAuth callback.
func IssueSessionToken(secret, instagramAccountID string) (string, time.Time, error) {
	if len(secret) < 32 {
		return "", time.Time{}, errors.New("session secret must be at least 32 characters")
	}

	now := time.Now()
	exp := now.Add(sessionTTL)
	claims := SessionClaims{
		InstagramAccountID: instagramAccountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   instagramAccountID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "roboka-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ValidateSessionToken parses and verifies a session token.
func ValidateSessionToken(secret, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid session token")
	}

	return claims, nil
}
