package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func requestWithCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, false)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, "user-1", "dev@example.com"))

	session, err := m.Get(requestWithCookies(t, rec))
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "dev@example.com", session.Email)
}

func TestSessionMissingCookie(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, false)

	_, err := m.Get(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionRejectsWrongSecret(t *testing.T) {
	issuer := NewSessionManager(testSecret, time.Hour, false)
	verifier := NewSessionManager("another-secret-that-is-32-bytes!", time.Hour, false)

	rec := httptest.NewRecorder()
	require.NoError(t, issuer.Issue(rec, "user-1", "dev@example.com"))

	_, err := verifier.Get(requestWithCookies(t, rec))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionRejectsExpiredToken(t *testing.T) {
	m := NewSessionManager(testSecret, -time.Minute, false)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, "user-1", "dev@example.com"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	// Add the cookie by hand since a negative MaxAge drops it client-side.
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	_, err := m.Get(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionCookieAttributes(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, true)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, "user-1", "dev@example.com"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

func TestStateRoundTrip(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, false)

	rec := httptest.NewRecorder()
	state, err := m.IssueState(rec)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	req := requestWithCookies(t, rec)
	assert.True(t, m.VerifyState(httptest.NewRecorder(), req, state))
	assert.False(t, m.VerifyState(httptest.NewRecorder(), req, "forged"))
	assert.False(t, m.VerifyState(httptest.NewRecorder(), req, ""))
}

func TestRequireSession(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, false)

	var got Session
	handler := m.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = FromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("unauthenticated api client", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})

	t.Run("unauthenticated browser", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("authenticated", func(t *testing.T) {
		issued := httptest.NewRecorder()
		require.NoError(t, m.Issue(issued, "user-1", "dev@example.com"))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithCookies(t, issued))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", got.UserID)
	})
}
