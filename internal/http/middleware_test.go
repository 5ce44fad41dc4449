package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMiddleware_IssuesCookieOnFirstContact(t *testing.T) {
	var captured string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = getSessionIDFromContext(r.Context())
	})

	recorder := httptest.NewRecorder()
	SessionMiddleware(next).ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	assert.NotEmpty(t, captured)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, captured, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessionMiddleware_ReusesExistingCookie(t *testing.T) {
	var captured string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = getSessionIDFromContext(r.Context())
	})

	request := httptest.NewRequest("GET", "/", nil)
	request.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "existing-session"})

	recorder := httptest.NewRecorder()
	SessionMiddleware(next).ServeHTTP(recorder, request)

	assert.Equal(t, "existing-session", captured)
	assert.Empty(t, recorder.Result().Cookies(), "no new cookie when one already exists")
}

func TestRequestIDMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	request := httptest.NewRequest("GET", "/", nil)
	request.Header.Set("X-Request-ID", "req-abc")

	recorder := httptest.NewRecorder()
	RequestIDMiddleware(next).ServeHTTP(recorder, request)

	assert.Equal(t, "req-abc", recorder.Header().Get("X-Request-ID"))
}
