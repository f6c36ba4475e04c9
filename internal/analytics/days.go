package analytics

import "time"

// dayDiff counts calendar days from a to b, both seen in loc
func dayDiff(a, b time.Time, loc *time.Location) int {
	a, b = a.In(loc), b.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// closedDays is dayDiff with a floor of one day for distinct instants on the same date
func closedDays(a, b time.Time, loc *time.Location) int {
	d := dayDiff(a, b, loc)
	if d == 0 && !a.Equal(b) {
		return 1
	}
	return d
}
