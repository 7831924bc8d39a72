package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
}

// force timezone to IST because the portal reports dates in IST and the
// next-update schedule is IST wall-clock time, regardless of where the
// sync job ends up running.
func Now() time.Time {
	return time.Now().In(Location)
}
