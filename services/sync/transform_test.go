package sync

import (
	"testing"
	"time"

	"mplads-backend/lib/scrapers/mplads"

	"github.com/stretchr/testify/require"
)

func completedRow(workID int64, mp string) mplads.RawRow {
	return mplads.RawRow{
		"STATE_NAME":        "Kerala",
		"MP_NAME":           mp,
		"CONSTITUENCY_NAME": "Wayanad",
		"WORK_ID":           float64(workID),
		"WORK_CATEGORY":     "Roads",
		"IA_NAME":           "District Collector",
		"WORK_DESCRIPTION":  "Road resurfacing",
		"COMPLETION_DATE":   "15-Aug-2025",
		"FINAL_AMOUNT":      "2.5 Lakh",
		"HAS_IMAGE":         "Y",
	}
}

func recommendedRow(workID int64, mp string) mplads.RawRow {
	return mplads.RawRow{
		"STATE_NAME":          "Kerala",
		"MP_NAME":             mp,
		"CONSTITUENCY_NAME":   "Wayanad",
		"WORK_ID":             float64(workID),
		"WORK_CATEGORY":       "Roads",
		"IA_NAME":             "District Collector",
		"WORK_DESCRIPTION":    "Road resurfacing",
		"RECOMMENDATION_DATE": "01-Jan-2025",
		"RECOMMENDED_AMOUNT":  "3 Lakh",
		"HAS_IMAGE":           "N",
	}
}

func TestDropRow(t *testing.T) {
	cases := []struct {
		state string
		mp    string
		drop  bool
	}{
		{state: "Kerala", mp: "A. Person", drop: false},
		{state: "", mp: "A. Person", drop: true},
		{state: "   ", mp: "A. Person", drop: true},
		{state: "K", mp: "A. Person", drop: true},
		{state: "Grand Total", mp: "A. Person", drop: true},
		{state: "Kerala", mp: "TOTAL", drop: true},
		{state: "Kerala", mp: "Sub-total", drop: true},
	}

	for _, test := range cases {
		row := mplads.RawRow{"STATE_NAME": test.state, "MP_NAME": test.mp}
		require.Equal(t, test.drop, dropRow(row), "state=%q mp=%q", test.state, test.mp)
	}
}

func TestTransformCompletedWorks(t *testing.T) {
	rows := []mplads.RawRow{
		completedRow(101, "A. Person"),
		completedRow(0, "B. Person"),   // no work id
		completedRow(102, "Total"),     // aggregate row
		completedRow(103, "C. Person"), // valid
	}
	rows[3]["COMPLETION_DATE"] = "" // but missing its date

	records := TransformCompletedWorks(rows, mplads.ChamberLokSabha, mplads.Term18)
	require.Len(t, records, 1)
	require.Equal(t, int64(101), records[0].WorkID)
	require.Equal(t, mplads.Term18, records[0].Term)
	require.Equal(t, float64(250000), records[0].FinalAmount)
	require.True(t, records[0].HasImage)
	require.Equal(t, "2025-08-15", records[0].CompletionDate.Format(time.DateOnly))
}

// every recommended work id must be absent from the batch's completed
// id set, a work that shows up in both phases only counts as completed.
func TestRecommendedExcludesCompletedIDs(t *testing.T) {
	completedRows := []mplads.RawRow{
		completedRow(201, "A. Person"),
		completedRow(202, "B. Person"),
	}
	recommendedRows := []mplads.RawRow{
		recommendedRow(201, "A. Person"), // already completed
		recommendedRow(300, "C. Person"),
		recommendedRow(301, "D. Person"),
	}

	completed := TransformCompletedWorks(completedRows, mplads.ChamberLokSabha, mplads.Term18)
	ids := CompletedIDSet(completed)
	recommended := TransformRecommendedWorks(recommendedRows, mplads.ChamberLokSabha, mplads.Term18, ids)

	require.Len(t, recommended, 2)
	for _, r := range recommended {
		_, overlap := ids[r.WorkID]
		require.False(t, overlap, "work %d is in both phases", r.WorkID)
	}
}

func TestTransformAttachesTermOnlyToLokSabha(t *testing.T) {
	rows := []mplads.RawRow{{
		"STATE_NAME":       "Kerala",
		"MP_NAME":          "A. Person",
		"ALLOCATED_AMOUNT": "5 Cr",
	}}

	ls := TransformAllocations(rows, mplads.ChamberLokSabha, mplads.Term17)
	require.Equal(t, mplads.Term17, ls[0].Term)
	require.Equal(t, float64(50000000), ls[0].AllocatedAmount)

	// Rajya Sabha rows keep the empty term marker even if a term
	// sneaks into the call
	rs := TransformAllocations(rows, mplads.ChamberRajyaSabha, mplads.Term17)
	require.Equal(t, mplads.TermNone, rs[0].Term)
}

func TestSerialNumberDefaultsToPosition(t *testing.T) {
	rows := []mplads.RawRow{
		{"STATE_NAME": "Kerala", "MP_NAME": "A. Person", "SNO": float64(7)},
		{"STATE_NAME": "Kerala", "MP_NAME": "B. Person"},
	}

	records := TransformAllocations(rows, mplads.ChamberRajyaSabha, mplads.TermNone)
	require.Len(t, records, 2)
	require.Equal(t, int64(7), records[0].SerialNo)
	// no serial upstream: 1-based position backfills it
	require.Equal(t, int64(2), records[1].SerialNo)
}

func TestTransformPreservesRowOrder(t *testing.T) {
	rows := []mplads.RawRow{
		completedRow(5, "A. Person"),
		completedRow(3, "B. Person"),
		completedRow(9, "C. Person"),
	}

	records := TransformCompletedWorks(rows, mplads.ChamberLokSabha, mplads.Term18)
	require.Len(t, records, 3)
	require.Equal(t, int64(5), records[0].WorkID)
	require.Equal(t, int64(3), records[1].WorkID)
	require.Equal(t, int64(9), records[2].WorkID)
}

func TestTransformExpenditures(t *testing.T) {
	rows := []mplads.RawRow{{
		"STATE_NAME":         "Kerala",
		"MP_NAME":            "A. Person",
		"CONSTITUENCY_NAME":  "Wayanad (ST) KL",
		"WORK_ID":            "4001",
		"WORK_DESCRIPTION":   "Community hall",
		"VENDOR_NAME":        "ACME Constructions",
		"IA_NAME":            "District Collector",
		"EXPENDITURE_DATE":   "N/A",
		"PAYMENT_STATUS":     "Paid",
		"EXPENDITURE_AMOUNT": "₹4,50,000",
	}}

	records := TransformExpenditures(rows, mplads.ChamberLokSabha, mplads.Term18)
	require.Len(t, records, 1)
	require.Equal(t, int64(4001), records[0].WorkID)
	require.Equal(t, "Wayanad", records[0].Constituency)
	require.Equal(t, float64(450000), records[0].Amount)
	// unparseable date stays the zero sentinel rather than erroring
	require.True(t, records[0].ExpenditureDate.IsZero())
}
