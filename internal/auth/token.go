// Package auth issues and verifies the signed identity tokens that
// connections and HTTP requests present.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sharetrack/backend/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrAuthRequired is returned when an action needs an identity and none is attached.
	ErrAuthRequired = errors.New("authentication required")
	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the identity token payload.
type Claims struct {
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 identity tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. ttl is the lifetime of issued tokens.
func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for id.
func (i *Issuer) Issue(id models.Identity) (string, time.Time, error) {
	if id.ID == "" {
		return "", time.Time{}, fmt.Errorf("issue token: empty subject")
	}
	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		DisplayName: id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// IssueGuest creates a random guest identity and a token for it.
func (i *Issuer) IssueGuest() (models.Identity, string, error) {
	id := uuid.New().String()
	guest := models.Identity{ID: id, DisplayName: "Guest-" + id[:4]}
	token, _, err := i.Issue(guest)
	if err != nil {
		return models.Identity{}, "", err
	}
	return guest, token, nil
}

// Verify validates signature, issuer and expiry and returns the identity.
func (i *Issuer) Verify(tokenString string) (*models.Identity, error) {
	if tokenString == "" {
		return nil, ErrAuthRequired
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &models.Identity{ID: claims.Subject, DisplayName: claims.DisplayName}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
