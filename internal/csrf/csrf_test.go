package csrf

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenFormat(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), token)
}

func TestGenerateTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		require.Len(t, token, 64)
		require.False(t, seen[token], "duplicate token generated")
		seen[token] = true
	}
}

func validateRequest(header, cookieHeader string) bool {
	r := httptest.NewRequest(http.MethodPost, "/clips", nil)
	if header != "" {
		r.Header.Set(HeaderName, header)
	}
	if cookieHeader != "" {
		r.Header.Set("Cookie", cookieHeader)
	}
	return Validate(r)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   bool
	}{
		{"matching tokens", "abc123", "csrf_token=abc123", true},
		{"mismatched tokens", "abc123", "csrf_token=xyz999", false},
		{"missing header", "", "csrf_token=abc123", false},
		{"missing cookie", "abc123", "", false},
		{"wrong cookie name", "abc123", "session=abc123", false},
		{"different lengths", "abc123", "csrf_token=abc1234", false},
		{"both empty", "", "", false},
		{"multiple cookies", "abc123", "theme=dark; csrf_token=abc123; lang=en", true},
		{"value containing equals", "abc=123", "csrf_token=abc=123", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validateRequest(tt.header, tt.cookie))
		})
	}
}

func TestGetOrIssueSetsCookie(t *testing.T) {
	s := NewService(false)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	token, err := s.GetOrIssue(w, r)
	require.NoError(t, err)
	require.Len(t, token, 64)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, token, c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, TokenTTL, c.MaxAge)
}

func TestGetOrIssueSecureInProduction(t *testing.T) {
	s := NewService(true)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := s.GetOrIssue(w, r)
	require.NoError(t, err)
	require.Len(t, w.Result().Cookies(), 1)
	assert.True(t, w.Result().Cookies()[0].Secure)
}

func TestGetOrIssueReusesExistingToken(t *testing.T) {
	s := NewService(false)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "existing-token"})

	token, err := s.GetOrIssue(w, r)
	require.NoError(t, err)
	assert.Equal(t, "existing-token", token)
	assert.Empty(t, w.Result().Cookies(), "no new cookie when one exists")
}

func TestRequire(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/clips", nil)
	r.Header.Set(HeaderName, token)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	assert.Nil(t, Require(r))

	r = httptest.NewRequest(http.MethodPost, "/clips", nil)
	appErr := Require(r)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Equal(t, "Invalid or missing CSRF token", appErr.UserMessage())
}
