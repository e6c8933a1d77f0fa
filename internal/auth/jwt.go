// Package auth verifies bearer tokens and carries the caller identity
// through request contexts.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"xpense/internal/core"
)

// Claims is the token payload. UserID is the expense owner.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens for one secret and issuer.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Generate signs a token for userID.
func (t *Tokens) Generate(userID string) (string, error) {
	uid, err := core.ParseUserID(userID)
	if err != nil {
		return "", err
	}

	now := t.now()
	claims := &Claims{
		UserID: uid.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   uid.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks signature, expiry and issuer and returns the caller's user id.
// Every failure wraps core.ErrUnauthorized. The id is returned as signed;
// callers reject a malformed one as bad input.
func (t *Tokens) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", fmt.Errorf("missing token: %w", core.ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: %w", core.ErrUnauthorized, jwt.ErrTokenInvalidClaims)
	}
	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		return "", fmt.Errorf("%w: token carries no user", core.ErrUnauthorized)
	}
	return userID, nil
}
