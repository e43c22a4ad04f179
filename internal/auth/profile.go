// Package auth holds the client-side credential plumbing: the signed cookie
// that identifies a browser profile, and the oauth2 token source that reads
// the backend bearer token from that profile's storage.
//
// PROFILE COOKIE:
// The front server keeps one "local storage" per browser. The browser is
// identified by an HS256 JWT whose subject is the profile ID (an xid):
//
//	HEADER.PAYLOAD.SIGNATURE
//	payload → {"sub":"cv37rs3pp9olc6atsptg","iss":"autodoc","exp":...}
//
// The signature stops a browser from picking another profile's ID.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	// ProfileCookieName is the cookie carrying the signed profile token.
	ProfileCookieName = "autodoc_profile"

	// ProfileLifetime is how long a browser keeps the same profile.
	ProfileLifetime = 365 * 24 * time.Hour

	issuer = "autodoc"
)

// ProfileTokens signs and validates profile tokens.
type ProfileTokens struct {
	secret []byte
}

// NewProfileTokens creates a ProfileTokens with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewProfileTokens(secret string) (*ProfileTokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: cookie secret must be at least 16 characters")
	}
	return &ProfileTokens{secret: []byte(secret)}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// NewProfileID returns a fresh, unguessable profile ID.
func NewProfileID() string {
	return xid.New().String()
}

// Issue signs a token for profileID valid for ProfileLifetime.
func (p *ProfileTokens) Issue(profileID string) (string, error) {
	return p.IssueWithDuration(profileID, ProfileLifetime)
}

// IssueWithDuration signs a token with a custom lifetime. Tests use it to
// build expired tokens.
func (p *ProfileTokens) IssueWithDuration(profileID string, d time.Duration) (string, error) {
	if profileID == "" {
		return "", errors.New("auth: profile ID must not be empty")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing profile token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the profile ID it carries.
func (p *ProfileTokens) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return p.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: profile token expired")
		}
		return "", fmt.Errorf("auth: invalid profile token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid profile token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: profile token has no subject")
	}
	return c.Subject, nil
}
