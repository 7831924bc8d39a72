// Package mplads talks to the MPLADS reporting portal. the portal has
// no documented API: auth is a cookie bootstrap off the landing page and
// the report endpoints answer with whatever envelope shape the upstream
// CMS feels like that day, so everything here is reverse-engineered and
// defensive about response shapes.
package mplads

import (
	"fmt"
)

type Chamber string

const (
	ChamberLokSabha   Chamber = "lok_sabha"
	ChamberRajyaSabha Chamber = "rajya_sabha"
)

// Term is a numbered Lok Sabha period. Rajya Sabha rows carry TermNone,
// the portal keys its Rajya Sabha data by chamber alone.
type Term string

const (
	Term17   Term = "17"
	Term18   Term = "18"
	TermNone Term = ""
)

type ReportKind string

const (
	ReportAllocation       ReportKind = "allocated_limit"
	ReportExpenditure      ReportKind = "expenditure"
	ReportCompletedWorks   ReportKind = "completed_works"
	ReportRecommendedWorks ReportKind = "recommended_works"
)

var AllReportKinds = []ReportKind{
	ReportAllocation,
	ReportExpenditure,
	ReportCompletedWorks,
	ReportRecommendedWorks,
}

// the report endpoint identifies datasets by display string, not id
var reportKeys = map[ReportKind]string{
	ReportAllocation:       "Allocated Limit",
	ReportExpenditure:      "Total Expenditure",
	ReportCompletedWorks:   "Total Works Completed",
	ReportRecommendedWorks: "Total Works Recommended",
}

func (k ReportKind) Key() string {
	return reportKeys[k]
}

// comboCode is the opaque discriminator the report endpoint wants.
// the 17th Lok Sabha reuses the 18th's code with one extra element
// appended; Rajya Sabha has a single code regardless of term.
func comboCode(chamber Chamber, term Term) string {
	if chamber == ChamberRajyaSabha {
		return "0,0,0,1"
	}
	if term == Term17 {
		return "0,0,0,2,5"
	}
	return "0,0,0,2"
}

const (
	reportPath       = "/mpladsReports/getReportData"
	attachmentIDPath = "/mpladsReports/getWorkAttachmentIds"
	attachmentPath   = "/mpladsReports/downloadAttachment"

	csrfHeader = "X-CSRF-TOKEN"
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// RawRow is one untyped report row, consumed once by the transformer.
type RawRow map[string]any

type FetchError struct {
	Chamber Chamber
	Kind    ReportKind
	Reason  string
	Cause   error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s/%s: %s", e.Chamber, e.Kind, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Cause }

type BootstrapError struct {
	Reason string
	Cause  error
}

func (e *BootstrapError) Error() string {
	msg := "session bootstrap: " + e.Reason
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BootstrapError) Unwrap() error { return e.Cause }

type DownloadError struct {
	AttachID string
	Cause    error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download attachment %s: %s", e.AttachID, e.Cause.Error())
}

func (e *DownloadError) Unwrap() error { return e.Cause }

type httpStatusError struct {
	Status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}
