package normalize

import (
	"strconv"
	"testing"
	"time"

	"mplads-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestCurrency(t *testing.T) {
	cases := []struct {
		raw      string
		expected float64
	}{
		{raw: "₹1,23,456", expected: 123456},
		{raw: "2.5 Cr", expected: 25000000},
		{raw: "2.5 Crores", expected: 25000000},
		{raw: "1 lakh", expected: 100000},
		{raw: "3 Lacs", expected: 300000},
		{raw: "Rs. 45,000", expected: 45000},
		{raw: "45000.50", expected: 45000.50},
		{raw: "--", expected: 0},
		{raw: "", expected: 0},
		{raw: "N/A", expected: 0},
		{raw: "null", expected: 0},
		{raw: "undefined", expected: 0},
		{raw: "no amount here", expected: 0},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, Currency(test.raw), "raw: %q", test.raw)
	}
}

// feeding the numeric string form of an amount back through Currency
// must return the same number.
func TestCurrencyIdempotent(t *testing.T) {
	inputs := []string{"₹1,23,456", "2.5 Cr", "1 lakh", "987654.25"}

	for _, raw := range inputs {
		once := Currency(raw)
		again := Currency(strconv.FormatFloat(once, 'f', -1, 64))
		require.Equal(t, once, again, "raw: %q", raw)
	}
}

func TestDate(t *testing.T) {
	d, ok := Date("15-Aug-2025")
	require.True(t, ok)
	require.Equal(t, "2025-08-15", d.Format(time.DateOnly))

	// single digit days get zero padded by construction
	d, ok = Date("5-Sept-2024")
	require.True(t, ok)
	require.Equal(t, "2024-09-05", d.Format(time.DateOnly))

	// no hyphen triad takes the generic ISO path
	d, ok = Date("2025/08/15")
	require.True(t, ok)
	require.Equal(t, "2025-08-15", d.Format(time.DateOnly))

	_, ok = Date("N/A")
	require.False(t, ok)
	_, ok = Date("")
	require.False(t, ok)
	_, ok = Date("32-Jan-2025")
	require.False(t, ok)

	d, ok = Date("01-Jan-2024")
	require.True(t, ok)
	require.Equal(t, timezone.Location, d.Location())
}

func TestConstituency(t *testing.T) {
	cases := []struct {
		raw      string
		expected string
	}{
		{raw: "Mandi HP", expected: "Mandi"},
		{raw: "Araku (ST)", expected: "Araku"},
		{raw: "Palghar - ST", expected: "Palghar"},
		{raw: "Chandni   Chowk", expected: "Chandni Chowk"},
		{raw: "Nagapattinam (SC) TN", expected: "Nagapattinam"},
		{raw: "Ratnagiri-Sindhudurg", expected: "Ratnagiri-Sindhudurg"},
		{raw: "  Jaipur Rural  ", expected: "Jaipur Rural"},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, Constituency(test.raw), "raw: %q", test.raw)
	}
}
