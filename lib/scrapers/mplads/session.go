package mplads

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"mplads-backend/lib/telemetry"
	"mplads-backend/lib/timezone"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/mplads")

// SessionLifetime is how long the portal honors a cookie set before it
// silently starts answering with login redirects.
const SessionLifetime = 4 * time.Hour

const bootstrapTimeout = 30 * time.Second

// Session is the portal's whole auth state: the joined cookie pairs the
// landing page handed out and an optional csrf token scraped from its
// HTML. the token is opaque and frequently absent.
type Session struct {
	Cookies   string    `json:"cookies"`
	CSRFToken string    `json:"csrf_token"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Session) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) >= SessionLifetime
}

// loadSessionFile reads a persisted session, rejecting files that are
// missing, malformed, or older than the session lifetime.
func loadSessionFile(path string) (Session, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, false
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false
	}
	if s.Cookies == "" || s.Expired(timezone.Now()) {
		return Session{}, false
	}
	return s, true
}

func writeSessionFile(path string, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// SessionManager owns the cookie session for one sync cycle. it is the
// only thing that mutates the session; everything else reads through
// Session(). not safe for concurrent cycles: the persisted session file
// is a shared-write hazard, serializing runs is the scheduler's job.
type SessionManager struct {
	http    *resty.Client
	file    string
	session Session
}

func NewSessionManager(baseURL, sessionFile string) (*SessionManager, error) {
	client := resty.New()
	client.SetBaseURL(baseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(bootstrapTimeout)

	telemetry.InstrumentResty(client, "scrapers/mplads/session")

	m := &SessionManager{
		http: client,
		file: sessionFile,
	}
	if s, ok := loadSessionFile(sessionFile); ok {
		m.session = s
	}
	return m, nil
}

func (m *SessionManager) Session() Session {
	return m.session
}

// Bootstrap performs the unauthenticated cookie dance: GET the portal
// root, collect every cookie it sets, scrape a csrf token out of the
// page if one is embedded, persist, then prove the result works with a
// validation probe.
func (m *SessionManager) Bootstrap(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:Bootstrap")
	defer span.End()

	res, err := m.http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "portal root unreachable")
		return &BootstrapError{Reason: "portal root unreachable", Cause: err}
	}

	cookies := res.Cookies()
	if len(cookies) == 0 {
		span.SetStatus(codes.Error, "portal returned no cookies")
		return &BootstrapError{Reason: "portal returned no cookies"}
	}

	pairs := make([]string, len(cookies))
	for i, c := range cookies {
		pairs[i] = c.Name + "=" + c.Value
	}

	m.session = Session{
		Cookies:   strings.Join(pairs, "; "),
		CSRFToken: scrapeCSRFToken(res.Body()),
		CreatedAt: timezone.Now(),
	}

	if err := writeSessionFile(m.file, m.session); err != nil {
		// the file is only a warm-start cache, keep going
		slog.WarnContext(ctx, "failed to persist session", "file", m.file, "err", err)
	}

	if !m.Validate(ctx) {
		span.SetStatus(codes.Error, "fresh session failed validation")
		return &BootstrapError{Reason: "fresh session failed validation"}
	}
	return nil
}

// Validate probes the session with the cheapest report the portal
// serves. true only on a 200 with a parseable JSON body; it never
// returns an error, a broken session simply reads as invalid.
func (m *SessionManager) Validate(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "session:Validate")
	defer span.End()

	if m.session.Cookies == "" || m.session.Expired(timezone.Now()) {
		return false
	}

	req := m.http.R().
		SetContext(ctx).
		SetHeader("Cookie", m.session.Cookies).
		SetFormData(map[string]string{
			"combo": comboCode(ChamberRajyaSabha, TermNone),
			"key":   reportKeys[ReportAllocation],
		})
	if m.session.CSRFToken != "" {
		req.SetHeader(csrfHeader, m.session.CSRFToken)
	}

	res, err := req.Post(reportPath)
	if err != nil || res.StatusCode() != 200 {
		return false
	}
	return json.Valid(res.Body())
}

// EnsureValid is the sole entry point for callers: it revalidates the
// current session and bootstraps a fresh one when that fails.
func (m *SessionManager) EnsureValid(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:EnsureValid")
	defer span.End()

	if m.Validate(ctx) {
		return nil
	}
	slog.InfoContext(ctx, "session invalid, bootstrapping a fresh one")
	return m.Bootstrap(ctx)
}

func scrapeCSRFToken(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return ""
	}
	if token, ok := doc.Find("meta[name=_csrf]").Attr("content"); ok {
		return token
	}
	if token, ok := doc.Find("input[name=_csrf]").Attr("value"); ok {
		return token
	}
	return ""
}
