// Package csrf implements the double-submit cookie pattern: the same
// random token is set as an HttpOnly cookie and must be echoed back in a
// request header on every mutating request. There is no server-side token
// store; the cookie is the source of truth, so the SameSite and Secure
// flags must stay on.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/fairwaylab/swinggate/internal/apperrors"
	"github.com/fairwaylab/swinggate/internal/transport"
)

const (
	// CookieName is the double-submit cookie.
	CookieName = transport.CSRFCookie
	// HeaderName carries the echoed token.
	HeaderName = transport.CSRFHeader

	tokenBytes = 32
	// TokenTTL is the cookie lifetime.
	TokenTTL = 24 * 60 * 60 // seconds
)

// Service issues and validates tokens. Secure controls the cookie's
// Secure flag and should be true in production.
type Service struct {
	Secure bool
}

// NewService returns a Service; secure should be true when serving HTTPS.
func NewService(secure bool) *Service {
	return &Service{Secure: secure}
}

// GenerateToken produces 32 cryptographically random bytes hex-encoded to
// a 64-character lowercase string.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GetOrIssue returns the request's existing token, or generates one and
// sets the cookie on the response.
func (s *Service) GetOrIssue(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   TokenTTL,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Validate reports whether the request's header token matches its cookie
// token. Missing header, missing cookie, or malformed input all fail
// closed; nothing here panics.
//
// Cookie extraction uses the stdlib parser, which handles multiple
// semicolon-separated cookies and values containing '='.
func Validate(r *http.Request) bool {
	header := r.Header.Get(HeaderName)
	if header == "" {
		return false
	}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	return equalConstantTime(header, c.Value)
}

// ErrorCode identifies a CSRF rejection in logs.
const ErrorCode = "CSRF_VALIDATION_FAILED"

// Require wraps Validate; on failure it returns the 403 error that the
// middleware shapes into the documented JSON rejection body.
func Require(r *http.Request) *apperrors.AppError {
	if Validate(r) {
		return nil
	}
	return apperrors.New(http.StatusForbidden, ErrorCode, "Invalid or missing CSRF token").
		WithUserMessage("Invalid or missing CSRF token")
}

// equalConstantTime compares two tokens without leaking the mismatch
// position. Length is checked explicitly first; subtle.ConstantTimeCompare
// then XOR-accumulates every byte pair.
func equalConstantTime(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
