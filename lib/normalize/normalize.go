// Package normalize holds pure functions that clean up the loosely
// formatted currency, date and constituency strings the portal emits.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"mplads-backend/lib/timezone"
)

const (
	crore = 1e7
	lakh  = 1e5
)

var numberRun = regexp.MustCompile(`\d+(\.\d+)?`)

func isJunkValue(s string) bool {
	switch s {
	case "", "-", "--", "n/a", "na", "null", "undefined", "nil":
		return true
	}
	return false
}

// Currency converts an amount string to rupees. it tolerates currency
// glyphs, Indian digit grouping, unit suffixes ("2.5 Cr", "1 lakh") and
// the many spellings of "no value" the portal uses. it never fails,
// garbage is 0.
func Currency(raw string) float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if isJunkValue(s) {
		return 0
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == ',' || r == '₹' {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	loc := numberRun.FindStringIndex(s)
	if loc == nil {
		return 0
	}
	n, err := strconv.ParseFloat(s[loc[0]:loc[1]], 64)
	if err != nil {
		return 0
	}

	rest := strings.TrimLeft(s[loc[1]:], ".")
	switch {
	case strings.HasPrefix(rest, "cr"):
		n *= crore
	case strings.HasPrefix(rest, "lakh"), strings.HasPrefix(rest, "lac"):
		n *= lakh
	}
	return n
}

var monthTable = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"sept": time.September, "oct": time.October, "nov": time.November,
	"dec": time.December,
}

var isoFallbackLayouts = []string{
	time.RFC3339,
	"2006/01/02",
	time.DateOnly,
}

// Date parses the portal's DD-MMM-YYYY date strings ("15-Aug-2025").
// strings without the hyphen triad fall back to generic ISO layouts.
// unparseable input reports ok=false with a zero time, never an error.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if isJunkValue(strings.ToLower(s)) {
		return time.Time{}, false
	}

	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return parseISO(s)
	}

	month, ok := monthTable[strings.ToLower(strings.TrimSpace(parts[1]))]
	if !ok {
		// numeric-month triads like "2025-08-15" still occur
		return parseISO(s)
	}

	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return time.Time{}, false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, timezone.Location)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		// time.Date silently rolls over "32-Jan-2025", reject those
		return time.Time{}, false
	}
	return t, true
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range isoFallbackLayouts {
		t, err := time.ParseInLocation(layout, s, timezone.Location)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	stateCodeSuffix  = regexp.MustCompile(`\s+\(?[A-Z]{2,3}\)?$`)
	reservedInParens = regexp.MustCompile(`(?i)\s*\(\s*(sc|st|gen|general|reserved)\s*\)$`)
	reservedDashed   = regexp.MustCompile(`(?i)\s*-\s*(sc|st|gen|general|reserved)$`)
)

// Constituency strips the decoration the portal appends to constituency
// names: a trailing 2-3 letter state code ("Mandi HP") and reservation
// qualifiers in parens or after a dash ("Araku (ST)", "Palghar - ST").
func Constituency(raw string) string {
	s := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")

	s = reservedInParens.ReplaceAllString(s, "")
	s = reservedDashed.ReplaceAllString(s, "")
	s = stateCodeSuffix.ReplaceAllString(s, "")
	s = reservedInParens.ReplaceAllString(s, "")
	s = reservedDashed.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}
