package mplads

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"mplads-backend/lib/retryutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Phase is the lifecycle phase whose attachment set is being addressed.
type Phase string

const (
	PhaseRecommended Phase = "recommended"
	PhaseCompleted   Phase = "completed"
)

func (p Phase) flag() string {
	if p == PhaseRecommended {
		return "1"
	}
	return "3"
}

// Attachment names one downloadable image for a work in one phase.
type Attachment struct {
	FileName string
	AttachID string
}

const noFileSentinel = "N/A"

var errBadAttachmentBody = errors.New("attachment body is not base64")

var downloadPolicy = retryutil.Policy{
	MaxAttempts: 3,
	BaseDelay:   2 * time.Second,
	MaxDelay:    10 * time.Second,
	Retryable:   isTransient,
}

// transient covers network-class failures, 5xx and 429. anything else
// (other 4xx, undecodable bodies) will not get better by retrying.
func isTransient(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == 429 || statusErr.Status >= 500
	}
	if errors.Is(err, errBadAttachmentBody) {
		return false
	}
	return true
}

// ResolveAttachments lists the attachment ids for one work in one
// phase. an empty result is a normal outcome, most works have no
// photographic evidence uploaded.
func (c *Client) ResolveAttachments(ctx context.Context, workID int64, phase Phase) ([]Attachment, error) {
	ctx, span := tracer.Start(ctx, "client:ResolveAttachments")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("work_id", workID),
		attribute.String("phase", string(phase)),
	)

	res, err := c.sessionRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"FLAG":    phase.flag(),
			"WORK_ID": workID,
		}).
		Post(attachmentIDPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, res.Status())
		return nil, &httpStatusError{Status: res.StatusCode()}
	}

	attachments, err := parseAttachmentList(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unusable attachment list")
		return nil, err
	}
	span.SetAttributes(attribute.Int("attachments", len(attachments)))
	return attachments, nil
}

// the endpoint answers [{FILE_NAME:"N/A"}] for no files, otherwise one
// or more entries whose FILE_NAME/ATTACH_ID are either scalars or
// parallel arrays to be zipped positionally.
func parseAttachmentList(body []byte) ([]Attachment, error) {
	var entries []struct {
		FileName json.RawMessage `json:"FILE_NAME"`
		AttachID json.RawMessage `json:"ATTACH_ID"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}

	var out []Attachment
	for _, entry := range entries {
		names := stringList(entry.FileName)
		ids := stringList(entry.AttachID)
		if len(names) == 1 && names[0] == noFileSentinel {
			continue
		}

		n := len(names)
		if len(ids) < n {
			n = len(ids)
		}
		for i := 0; i < n; i++ {
			if ids[i] == "" {
				continue
			}
			out = append(out, Attachment{FileName: names[i], AttachID: ids[i]})
		}
	}
	return out, nil
}

// stringList coerces a raw JSON value (scalar or array, string or
// number) into a list of strings.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	if list, ok := value.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, coerceString(item))
		}
		return out
	}
	return []string{coerceString(value)}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case nil:
		return ""
	default:
		return ""
	}
}

// DownloadAttachment fetches one attachment's bytes: POST the raw id,
// decode the base64 the portal answers with. transient failures retry
// up to the policy's budget; the last error is surfaced wrapped in a
// *DownloadError so the caller can skip the pair and keep the cycle
// going.
func (c *Client) DownloadAttachment(ctx context.Context, attachID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:DownloadAttachment")
	defer span.End()
	span.SetAttributes(attribute.String("attach_id", attachID))

	data, err := retryutil.Do(ctx, downloadPolicy, func() ([]byte, error) {
		res, err := c.sessionRequest(ctx).
			SetHeader("Content-Type", "text/plain").
			SetBody(attachID).
			Post(attachmentPath)
		if err != nil {
			return nil, err
		}
		if res.StatusCode() != 200 {
			return nil, &httpStatusError{Status: res.StatusCode()}
		}
		return decodeAttachmentBody(res.Body())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		return nil, &DownloadError{AttachID: attachID, Cause: err}
	}

	span.SetAttributes(attribute.Int("bytes", len(data)))
	return data, nil
}

// decodeAttachmentBody handles the two shapes the bytes endpoint uses:
// a base64 string (sometimes JSON-quoted, sometimes not) or a
// single-element array carrying the base64 under URL.
func decodeAttachmentBody(body []byte) ([]byte, error) {
	var encoded string
	if err := json.Unmarshal(body, &encoded); err != nil {
		var list []struct {
			URL string `json:"URL"`
		}
		if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
			encoded = list[0].URL
		} else {
			encoded = strings.TrimSpace(string(body))
		}
	}

	if i := strings.Index(encoded, "base64,"); i >= 0 {
		encoded = encoded[i+len("base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errBadAttachmentBody
	}
	if len(data) == 0 {
		return nil, errBadAttachmentBody
	}
	return data, nil
}
