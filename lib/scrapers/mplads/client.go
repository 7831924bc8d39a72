package mplads

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/cookiejar"
	"strings"
	"time"

	"mplads-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// report responses are large and the portal is slow under load
const reportTimeout = 120 * time.Second

const interRequestDelay = time.Second

var errNoMatchingDataKey = errors.New("no matching data key")

// Client issues report and attachment requests against the portal using
// the session owned by its SessionManager. it never mutates the session.
type Client struct {
	http     *resty.Client
	sessions *SessionManager
}

func NewClient(baseURL string, sessions *SessionManager) (*Client, error) {
	client := resty.New()
	client.SetBaseURL(baseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(reportTimeout)

	telemetry.InstrumentResty(client, "scrapers/mplads/http")

	return &Client{http: client, sessions: sessions}, nil
}

func (c *Client) sessionRequest(ctx context.Context) *resty.Request {
	session := c.sessions.Session()
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Cookie", session.Cookies)
	if session.CSRFToken != "" {
		req.SetHeader(csrfHeader, session.CSRFToken)
	}
	return req
}

// Fetch pulls one report kind for one chamber/term. rows come back in
// upstream order. failures are *FetchError; this layer never retries,
// the cycle treats a failed kind as a degraded-but-continuing outcome.
func (c *Client) Fetch(ctx context.Context, chamber Chamber, kind ReportKind, term Term) ([]RawRow, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("chamber", string(chamber)),
		attribute.String("kind", string(kind)),
		attribute.String("term", string(term)),
	)

	res, err := c.sessionRequest(ctx).
		SetFormData(map[string]string{
			"combo": comboCode(chamber, term),
			"key":   reportKeys[kind],
		}).
		Post(reportPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, &FetchError{Chamber: chamber, Kind: kind, Reason: "request failed", Cause: err}
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, res.Status())
		return nil, &FetchError{
			Chamber: chamber, Kind: kind,
			Reason: "unexpected status",
			Cause:  &httpStatusError{Status: res.StatusCode()},
		}
	}

	rows, err := extractRows(res.Body(), reportKeys[kind])
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unusable response envelope")
		return nil, &FetchError{Chamber: chamber, Kind: kind, Reason: "unusable response envelope", Cause: err}
	}

	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

// extractRows unwraps the portal's three response envelopes, in fixed
// priority order:
//  1. a literal JSON array of rows
//  2. a JSON string that itself decodes to an array
//  3. a JSON object holding the array under a key loosely matching the
//     requested one (exact, then case-insensitive substring in either
//     direction); the matched value may again be string-encoded
func extractRows(body []byte, key string) ([]RawRow, error) {
	var rows []RawRow
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}

	var encoded string
	if err := json.Unmarshal(body, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &rows); err == nil {
			return rows, nil
		}
		return nil, errNoMatchingDataKey
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errNoMatchingDataKey
	}

	if value, ok := envelope[key]; ok {
		return decodeRowsValue(value)
	}
	lowKey := strings.ToLower(key)
	for k, value := range envelope {
		lk := strings.ToLower(k)
		if strings.Contains(lk, lowKey) || strings.Contains(lowKey, lk) {
			return decodeRowsValue(value)
		}
	}
	return nil, errNoMatchingDataKey
}

func decodeRowsValue(value json.RawMessage) ([]RawRow, error) {
	var rows []RawRow
	if err := json.Unmarshal(value, &rows); err == nil {
		return rows, nil
	}
	var encoded string
	if err := json.Unmarshal(value, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &rows); err == nil {
			return rows, nil
		}
	}
	return nil, errNoMatchingDataKey
}

// FetchAllForChamber pulls all four report kinds sequentially with a
// fixed spacing between requests, the portal has no patience for burst
// traffic. a single kind failing does not stop the cycle: its rows are
// replaced with an empty slice, observable downstream as a zero count.
func (c *Client) FetchAllForChamber(ctx context.Context, chamber Chamber, term Term) map[ReportKind][]RawRow {
	ctx, span := tracer.Start(ctx, "client:FetchAllForChamber")
	defer span.End()
	span.SetAttributes(
		attribute.String("chamber", string(chamber)),
		attribute.String("term", string(term)),
	)

	out := make(map[ReportKind][]RawRow, len(AllReportKinds))
	for i, kind := range AllReportKinds {
		if i > 0 {
			select {
			case <-time.After(interRequestDelay):
			case <-ctx.Done():
			}
		}

		rows, err := c.Fetch(ctx, chamber, kind, term)
		if err != nil {
			slog.ErrorContext(ctx, "report fetch failed, continuing degraded",
				"chamber", chamber, "kind", kind, "err", err)
			out[kind] = nil
			continue
		}
		out[kind] = rows
	}
	return out
}
