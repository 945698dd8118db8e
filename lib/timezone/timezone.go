package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Warsaw")
	if err != nil {
		panic(err)
	}
}

// force timezone to be in Warsaw because the hosting region is not
// guaranteed to match the university's, which would skew everything
// derived from <time.Time>.Year()/Month()/Day()/Hour()/...
func Now() time.Time {
	return time.Now().In(Location)
}

// Next8AM returns today's 08:00 if `now` is strictly before it,
// otherwise tomorrow's 08:00. Computed in the Warsaw calendar.
func Next8AM(now time.Time) time.Time {
	now = now.In(Location)
	today8 := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, Location)
	if now.Before(today8) {
		return today8
	}
	return today8.AddDate(0, 0, 1)
}
