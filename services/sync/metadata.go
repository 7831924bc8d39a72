package sync

import (
	"fmt"
	"math"
	"time"

	"mplads-backend/lib/timezone"
)

// SourceLabel keys the metadata singleton in the document store.
const SourceLabel = "mplads"

const syncHour = 2 // portal load is lowest in the early morning

type RecordCounts struct {
	Allocations      int `bson:"allocations"`
	Expenditures     int `bson:"expenditures"`
	CompletedWorks   int `bson:"completedWorks"`
	RecommendedWorks int `bson:"recommendedWorks"`
}

type Metadata struct {
	Source          string       `bson:"source"`
	LastUpdated     time.Time    `bson:"lastUpdated"`
	LastUpdatedText string       `bson:"lastUpdatedText"`
	NextUpdate      time.Time    `bson:"nextUpdate"`
	NextUpdateText  string       `bson:"nextUpdateText"`
	Frequency       string       `bson:"frequency"`
	DataQuality     int          `bson:"dataQualityScore"`
	Counts          RecordCounts `bson:"recordCounts"`
}

// NextUpdateTime schedules the next sync at 02:00 IST: the next day for
// "daily", the following Monday for "weekly" (a full week out only when
// today already is Monday), fourteen days out for "bi-weekly".
// unrecognized frequencies behave like daily.
func NextUpdateTime(now time.Time, frequency string) time.Time {
	now = now.In(timezone.Location)

	switch frequency {
	case "weekly":
		days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return atSyncHour(now.AddDate(0, 0, days))
	case "bi-weekly":
		return atSyncHour(now.AddDate(0, 0, 14))
	default:
		return atSyncHour(now.AddDate(0, 0, 1))
	}
}

func atSyncHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), syncHour, 0, 0, 0, timezone.Location)
}

// relativeText renders the gap to the next update the way the metadata
// consumers display it: hours under a day, "tomorrow" at exactly one
// day, days beyond that.
func relativeText(now, next time.Time) string {
	gap := next.Sub(now)
	if gap <= 0 {
		return "now"
	}
	if gap < 24*time.Hour {
		return fmt.Sprintf("in %d hours", int(math.Ceil(gap.Hours())))
	}
	days := int(math.Ceil(gap.Hours() / 24))
	if days == 1 {
		return "tomorrow"
	}
	return fmt.Sprintf("in %d days", days)
}
