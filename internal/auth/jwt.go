// Package auth issues and checks the session credential of the dev API.
//
// SESSION FLOW:
//  1. Signup, login or the GitHub callback succeeds.
//  2. The server signs a JWT whose subject is the user id and sets it as the
//     HttpOnly cookie "aic_hub_session" (SameSite=Lax, seven days).
//  3. Every later request carries the cookie. RequireAuth / OptionalAuth read
//     it, validate the signature, expiry and issuer, and put the user id in
//     the request context.
//  4. Logout overwrites the cookie with an expired one.
//
// Tokens are stateless: nothing is stored server-side, so logging out only
// removes the cookie from the client.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the session cookie.
	CookieName = "aic_hub_session"
	// SessionLifetime is how long a session token stays valid.
	SessionLifetime = 7 * 24 * time.Hour

	issuer = "aic-hub"
)

// TokenService signs and validates session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
	secure bool
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters. secure marks the cookie Secure (set it behind HTTPS).
func NewTokenService(secret string, secure bool) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), secure: secure}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a session token for userID valid for SessionLifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, SessionLifetime)
}

// GenerateWithDuration signs a token with a custom lifetime. A negative
// duration yields an already expired token (used in tests).
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate checks a token and returns its user id.
//
// Only HS256 is accepted, which rules out "alg: none" tokens, and the issuer
// must match.
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
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
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

// SetSession issues a token for userID and writes it as the session cookie.
func (s *TokenService) SetSession(w http.ResponseWriter, userID string) error {
	token, err := s.Generate(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionLifetime / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession expires the session cookie.
func (s *TokenService) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
