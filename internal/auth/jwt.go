// Package auth provides sessions, password hashing, token sealing and the
// GitHub OAuth flow.
//
// SESSION FLOW:
//  1. User visits /api/auth/github → redirected to GitHub
//  2. GitHub calls back /api/auth/github/callback with a code
//  3. Server exchanges the code for an access token and the GitHub profile,
//     then upserts (or links) the user in the DB
//  4. Server issues a signed JWT and stores it in the HttpOnly "token" cookie
//  5. On subsequent API calls, RequireAuth validates the JWT and puts the
//     userID in the request context
//
// Local signup/login (email + bcrypt password) ends at step 4 as well.
//
// WHY A JWT IN A COOKIE?
// The token is self-contained: it carries the userID and the expiry, signed
// with the server secret. Validating a request needs the secret only, no
// session table and no DB round trip. The browser attaches the HttpOnly
// cookie on every call to the API origin, and page scripts cannot read it.
// API clients without cookies send the same token as "Authorization: Bearer".
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","iss":"devtrack","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// Anyone can base64-decode the payload, so it holds nothing but the user ID.
// The GitHub access token never goes into a JWT.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "devtrack"

	// DefaultSessionTTL is the lifetime of a regular session token.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to both sign and verify, plus the default
// session lifetime.
//
// Sessions are single long-lived tokens: there is no refresh rotation and no
// revocation list, so logout only deletes the cookie. A stolen token stays
// valid until it expires; changing JWT_SECRET invalidates every session at
// once.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl <= 0 selects DefaultSessionTTL.
//
// The secret should be at least 32 bytes of random data in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. Embedding jwt.RegisteredClaims gives the
// standard fields (Subject, Issuer, IssuedAt, ExpiresAt) and their
// validation for free.
//
// "sub" (Subject) holds the internal user ID, never the GitHub ID: password
// accounts have no GitHub ID and linked accounts may change theirs.
type claims struct {
	jwt.RegisteredClaims
}

// TTL is the lifetime of tokens issued by Generate. Handlers use it for the
// cookie MaxAge so cookie and token expire together.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate creates and signs a session token with the default lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Dev-login sessions use it for their shorter 1-day lifetime.
//
// Signing algorithm: HS256 (HMAC-SHA256)
//   - Symmetric: the same key signs and verifies
//   - One server process, one secret from config
//   - RS256 would let other services verify without the signing key; there
//     are no such services here
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
	}

	// NewWithClaims builds the unsigned token; SignedString signs it and
	// returns the three dot-separated parts.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// ErrTokenExpired is returned by Validate for well-formed but expired tokens.
var ErrTokenExpired = errors.New("auth: token expired")

// Validate parses and verifies a JWT string and returns the userID in "sub".
//
// VALIDATION CHECKS:
//   - Signature is valid
//   - Token is not expired and carries an expiry
//   - Issuer is "devtrack"
//   - Algorithm is HS256 (jwt.WithValidMethods blocks "none" and friends)
//
// ALGORITHM CONFUSION ATTACK:
// The algorithm is named inside the token itself. A forged token claiming
// "none" (no signature) or RS256 (with our HMAC secret misused as a public
// key) must be rejected before the signature check, which is what the
// method allow-list and the type assertion in the key func do.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Expiry gets its own sentinel so middleware can tell "log in again"
		// apart from a tampered token in the logs.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
