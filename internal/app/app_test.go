package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	server, closer, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })
	return server.Handler
}

func call(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestServerEndToEnd(t *testing.T) {
	dbPaths := map[string]string{
		"memory": ":memory:",
		"file":   filepath.Join(t.TempDir(), "regform.sqlite"),
	}
	for name, path := range dbPaths {
		t.Run(name, func(t *testing.T) {
			h := newTestServer(t, Config{DBPath: path, SessionTTL: time.Hour})

			rec, body := call(t, h, http.MethodPost, "/v1/sessions", "")
			require.Equal(t, http.StatusCreated, rec.Code)
			session := body["id"].(string)

			rec, body = call(t, h, http.MethodPost, "/v1/sessions/"+session+"/registrations",
				`{"fullName":"Jane Doe","email":"jane@doe.com","phone":"+358 40 123 4567","birthDate":"2000-01-01","termsAccepted":true}`)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			assert.Equal(t, "Accepted", body["status"])

			rec, _ = call(t, h, http.MethodPost, "/v1/sessions/"+session+"/registrations",
				`{"fullName":"Jane","email":"jane@doe.com","phone":"+358 40 123 4567","birthDate":"2000-01-01","termsAccepted":true}`)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			rec, body = call(t, h, http.MethodGet, "/v1/sessions/"+session+"/registrations", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, body["items"], 1)

			rec, _ = call(t, h, http.MethodGet, "/metrics", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "regform_registrations_accepted_total 1")
			assert.Contains(t, rec.Body.String(), `regform_field_errors_total{code="NAME_INCOMPLETE"} 1`)
		})
	}
}

func TestServerRateLimit(t *testing.T) {
	h := newTestServer(t, Config{DBPath: ":memory:", RateLimit: 1})

	rec, _ := call(t, h, http.MethodPost, "/registrations", "session=missing")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec, _ = call(t, h, http.MethodPost, "/registrations", "session=missing")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestServerRateLimitBehindTrustedProxy(t *testing.T) {
	h := newTestServer(t, Config{DBPath: ":memory:", RateLimit: 1, TrustedProxies: []string{"192.0.2.0/24"}})

	post := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
		req.RemoteAddr = "192.0.2.1:8443"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, post("203.0.113.1"))
	assert.Equal(t, http.StatusCreated, post("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.1"))
}

func TestNewServerRejectsBadTrustedProxy(t *testing.T) {
	_, _, err := NewServer(context.Background(), Config{DBPath: ":memory:", RateLimit: 1, TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestResourceCloserReturnsFirstError(t *testing.T) {
	var closed []string
	first := errors.New("first")
	rc := resourceCloser{closers: []io.Closer{
		nil,
		closerFunc(func() error { closed = append(closed, "a"); return first }),
		closerFunc(func() error { closed = append(closed, "b"); return errors.New("second") }),
	}}

	assert.ErrorIs(t, rc.Close(), first)
	assert.Equal(t, []string{"a", "b"}, closed)
}
