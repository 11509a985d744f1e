package signal

import (
	"math"
	"time"
)

const hoursPerDay = 24

// daysUntil returns the signed whole-day distance from now to target using
// ceiling division. Negative means target is in the past. The upstream
// behaviour is ceil(milliseconds / day), so this must stay a ceiling, not
// a floor or round-nearest.
func daysUntil(now, target time.Time) int {
	return int(math.Ceil(target.Sub(now).Hours() / hoursPerDay))
}

// gapDays returns the absolute whole-day gap between two instants,
// rounded up.
func gapDays(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / hoursPerDay))
}

// addMonthClamped advances t by one calendar month keeping the same
// day-of-month, clamping to the last day of the target month
// (Jan 31 -> Feb 28/29) instead of letting the date normalize forward.
func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}

	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, h, min, sec, t.Nanosecond(), t.Location())
}

// sameMonth reports whether a and b fall in the same calendar month.
func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// previousMonth returns the calendar month before the given one, with the
// December rollover handled explicitly.
func previousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}
