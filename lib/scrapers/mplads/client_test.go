package mplads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mplads-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestComboCodes(t *testing.T) {
	require.Equal(t, "0,0,0,2", comboCode(ChamberLokSabha, Term18))
	// the 17th term is the 18th's code plus one extra discriminator
	require.Equal(t, "0,0,0,2,5", comboCode(ChamberLokSabha, Term17))
	// Rajya Sabha ignores the term entirely
	require.Equal(t, "0,0,0,1", comboCode(ChamberRajyaSabha, TermNone))
	require.Equal(t, "0,0,0,1", comboCode(ChamberRajyaSabha, Term17))
}

func TestExtractRowsLiteralArray(t *testing.T) {
	rows, err := extractRows([]byte(`[{"WORK_ID":1},{"WORK_ID":2}]`), "Total Works Completed")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, float64(1), rows[0]["WORK_ID"])
}

func TestExtractRowsStringEncodedArray(t *testing.T) {
	body := `"[{\"STATE_NAME\":\"Kerala\"}]"`
	rows, err := extractRows([]byte(body), "Total Expenditure")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Kerala", rows[0]["STATE_NAME"])
}

func TestExtractRowsObjectExactKey(t *testing.T) {
	body := `{"Allocated Limit":[{"MP_NAME":"A"}]}`
	rows, err := extractRows([]byte(body), "Allocated Limit")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

// the envelope's key may hold a string-encoded array rather than the
// array itself; the inner string must be decoded, not returned literally
func TestExtractRowsObjectStringEncodedValue(t *testing.T) {
	body := `{"Allocated Limit":"[{\"MP_NAME\":\"A\"},{\"MP_NAME\":\"B\"}]"}`
	rows, err := extractRows([]byte(body), "Allocated Limit")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "B", rows[1]["MP_NAME"])
}

func TestExtractRowsObjectLooseKey(t *testing.T) {
	// response key contains the requested key
	rows, err := extractRows(
		[]byte(`{"lstTotal Works Completed":[{"WORK_ID":9}]}`),
		"Total Works Completed",
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// requested key contains the response key, case-insensitive
	rows, err = extractRows(
		[]byte(`{"works completed":[{"WORK_ID":9}]}`),
		"Total Works Completed",
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestExtractRowsNoMatch(t *testing.T) {
	_, err := extractRows([]byte(`{"something else":[]}`), "Total Expenditure")
	require.ErrorIs(t, err, errNoMatchingDataKey)

	_, err = extractRows([]byte(`42`), "Total Expenditure")
	require.ErrorIs(t, err, errNoMatchingDataKey)
}

func TestFetchAllForChamberDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.FormValue("key") == ReportExpenditure.Key() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"STATE_NAME":"Kerala","MP_NAME":"A"}]`))
	}))
	defer server.Close()

	m, err := NewSessionManager(server.URL, filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	m.session = Session{Cookies: "JSESSIONID=x", CreatedAt: timezone.Now()}

	client, err := NewClient(server.URL, m)
	require.NoError(t, err)

	byKind := client.FetchAllForChamber(context.Background(), ChamberLokSabha, Term18)
	require.Len(t, byKind, len(AllReportKinds))
	// the failed kind degrades to an empty result instead of aborting
	require.Empty(t, byKind[ReportExpenditure])
	require.Len(t, byKind[ReportCompletedWorks], 1)
	require.Len(t, byKind[ReportAllocation], 1)
}
