package stats

import (
	"fmt"
	"time"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// DayKeyFor returns the UTC calendar day of ts.
// Every caller (engine, HTTP views, CLI) must key days through this function.
func DayKeyFor(ts time.Time) DayKey {
	y, m, d := ts.UTC().Date()
	return DayKey(fmt.Sprintf("%04d-%02d-%02d", y, int(m), d))
}

// WeekKeyFor returns the year-anchored week of ts, in UTC.
//
// week = ceil((msSinceJan1 + (weekdayOfJan1+1)*day) / (7*day))
//
// Weeks therefore roll over at Saturday 00:00 UTC, the boundary instant
// itself belonging to the earlier week, and week 01 always contains
// Jan 1 00:00. Stored week keys depend on this exact rule.
func WeekKeyFor(ts time.Time) WeekKey {
	u := ts.UTC()
	year := u.Year()
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	elapsed := u.Sub(jan1).Milliseconds()
	offset := int64(jan1.Weekday()+1) * msPerDay
	week := ceilDiv(elapsed+offset, 7*msPerDay)

	return WeekKey(fmt.Sprintf("%04d-W%02d", year, week))
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
