package mplads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mplads-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestSessionFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := Session{
		Cookies:   "JSESSIONID=abc; TS01=def",
		CSRFToken: "tok",
		CreatedAt: timezone.Now(),
	}
	require.NoError(t, writeSessionFile(path, s))

	loaded, ok := loadSessionFile(path)
	require.True(t, ok)
	require.Equal(t, s.Cookies, loaded.Cookies)
	require.Equal(t, s.CSRFToken, loaded.CSRFToken)
}

func TestSessionFileExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	stale := Session{
		Cookies:   "JSESSIONID=abc",
		CreatedAt: timezone.Now().Add(-SessionLifetime - time.Minute),
	}
	require.NoError(t, writeSessionFile(path, stale))

	_, ok := loadSessionFile(path)
	require.False(t, ok)
}

func TestSessionFileMissing(t *testing.T) {
	_, ok := loadSessionFile(filepath.Join(t.TempDir(), "nope.json"))
	require.False(t, ok)
}

// fakePortal imitates the portal's cookie bootstrap and report probe.
type fakePortal struct {
	cookieValue string
	csrfToken   string
	reportBody  string
}

func (p fakePortal) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: p.cookieValue})
		http.SetCookie(w, &http.Cookie{Name: "TS01a3c52", Value: "fingerprint"})
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><meta name="_csrf" content="` + p.csrfToken + `"></head></html>`))
	})
	mux.HandleFunc("POST "+reportPath, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Cookie"), "JSESSIONID="+p.cookieValue) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(p.reportBody))
	})
	return mux
}

func TestBootstrapAndValidate(t *testing.T) {
	portal := fakePortal{cookieValue: "abc123", csrfToken: "tok456", reportBody: "[]"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	m, err := NewSessionManager(server.URL, path)
	require.NoError(t, err)

	// no session loaded, EnsureValid must bootstrap
	require.NoError(t, m.EnsureValid(context.Background()))

	s := m.Session()
	require.Contains(t, s.Cookies, "JSESSIONID=abc123")
	require.Contains(t, s.Cookies, "TS01a3c52=fingerprint")
	require.Equal(t, "tok456", s.CSRFToken)
	require.False(t, s.CreatedAt.IsZero())

	// the bootstrap must have persisted a loadable session
	loaded, ok := loadSessionFile(path)
	require.True(t, ok)
	require.Equal(t, s.Cookies, loaded.Cookies)

	// a second manager warm-starts from the file and validates without
	// bootstrapping again
	m2, err := NewSessionManager(server.URL, path)
	require.NoError(t, err)
	require.True(t, m2.Validate(context.Background()))
}

func TestBootstrapNoCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	m, err := NewSessionManager(server.URL, filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	err = m.Bootstrap(context.Background())
	var bootErr *BootstrapError
	require.ErrorAs(t, err, &bootErr)
	require.Contains(t, bootErr.Reason, "no cookies")
}

func TestValidateRejectsMalformedBody(t *testing.T) {
	portal := fakePortal{cookieValue: "abc", reportBody: "<html>login page</html>"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	m, err := NewSessionManager(server.URL, filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	m.session = Session{Cookies: "JSESSIONID=abc", CreatedAt: timezone.Now()}

	require.False(t, m.Validate(context.Background()))
}
