package progress

import "time"

// civilDate is a wall-clock calendar date.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}

// previous returns the calendar day before d. time.Date normalises day 0
// into the last day of the prior month, so month and year boundaries and
// DST transitions need no special casing.
func (d civilDate) previous() civilDate {
	return dateOf(time.Date(d.year, d.month, d.day-1, 12, 0, 0, 0, time.UTC))
}

// UpdateStreak returns the state after recording activity at now.
//
// Dates are compared as calendar days in now's location:
//   - same day as the last login: s is returned unchanged
//   - the day after the last login: streak + 1
//   - anything else (never, a gap, a future date): streak restarts at 1
func UpdateStreak(s UserState, now time.Time) UserState {
	today := dateOf(now)

	if s.LastLoginDate != nil {
		last := dateOf(s.LastLoginDate.In(now.Location()))
		if last == today {
			return s
		}
	}

	next := s.Clone()
	if s.LastLoginDate != nil && dateOf(s.LastLoginDate.In(now.Location())) == today.previous() {
		next.CurrentStreak = s.CurrentStreak + 1
	} else {
		next.CurrentStreak = 1
	}
	stamp := now
	next.LastLoginDate = &stamp
	return next
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	return dateOf(a) == dateOf(b.In(a.Location()))
}
