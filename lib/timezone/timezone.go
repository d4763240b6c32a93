package timezone

import "time"

// Location is the timezone MHRS schedules are expressed in.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Istanbul")
	if err != nil {
		// Turkey has been on fixed UTC+3 since 2016
		Location = time.FixedZone("TRT", 3*60*60)
	}
}

// Now returns the current time in Istanbul, date arithmetic on
// Year()/Month()/Day() must not depend on the host's zone.
func Now() time.Time {
	return time.Now().In(Location)
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WholeDaysBetween is floor((end - start) / 24h), never negative.
func WholeDaysBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}
