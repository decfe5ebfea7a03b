// Package jwtauth issues and parses the HS256 tokens our services pass
// around, including extraction from HTTP requests. Signing and
// verification are golang-jwt's job; this package fixes the claims shape
// and the header conventions.
package jwtauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the token lifetime used when the claims carry no expiry.
var DefaultTTL = 6 * time.Hour

var (
	// ErrNoToken indicates the request carries no token at all.
	ErrNoToken = errors.New("no authorization token")

	// ErrTokenFormat indicates an authorization header that is not in
	// "Bearer <token>" or "Token <token>" form.
	ErrTokenFormat = errors.New("malformed authorization header")
)

// Claims is the token payload. The registered claims are embedded, so
// issuer and subject checks work through jwt parser options.
type Claims struct {
	jwt.RegisteredClaims

	UserID    int64  `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Admin     bool   `json:"is_admin,omitempty"`
}

// Sign issues an HS256 token for claims. Missing IssuedAt, NotBefore and
// ExpiresAt are filled in, the expiry DefaultTTL from now.
func Sign(secret []byte, claims Claims) (string, error) {
	return SignWithTTL(secret, claims, DefaultTTL)
}

// SignWithTTL issues an HS256 token with an explicit lifetime. A
// non-nil ExpiresAt already present in claims wins over ttl.
func SignWithTTL(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}

	now := time.Now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.NotBefore == nil {
		claims.NotBefore = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Parse verifies an HS256 token and returns its claims. Expiry and
// not-before are checked by the parser; extra checks like issuer can be
// passed as options. Expired tokens unwrap to jwt.ErrTokenExpired.
func Parse(secret []byte, token string, opts ...jwt.ParserOption) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	return &claims, nil
}

// FromRequest extracts the token from r and parses it. The Authorization
// header is tried first, then the WebSocket subprotocol fallback.
func FromRequest(secret []byte, r *http.Request, opts ...jwt.ParserOption) (*Claims, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	return Parse(secret, token, opts...)
}

// TokenFromRequest returns the raw token carried by r. It accepts
// "Bearer <token>" and "Token <token>" Authorization headers. Browser
// WebSocket clients cannot set headers, so the second entry of
// Sec-Websocket-Protocol is accepted as a fallback, per the
// "access_token, <token>" subprotocol convention.
func TokenFromRequest(r *http.Request) (string, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		parts := strings.Fields(hdr)
		if len(parts) != 2 {
			return "", ErrTokenFormat
		}

		switch strings.ToLower(parts[0]) {
		case "bearer", "token":
			return parts[1], nil
		default:
			return "", ErrTokenFormat
		}
	}

	if protocols := r.Header.Get("Sec-Websocket-Protocol"); protocols != "" {
		parts := strings.Split(protocols, ",")
		if len(parts) > 1 {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token, nil
			}
		}
	}

	return "", ErrNoToken
}
