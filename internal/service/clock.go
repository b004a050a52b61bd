package service

import "time"

// ClockFunc adapts a function to domain.Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reports wall time in loc.
func SystemClock(loc *time.Location) ClockFunc {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time {
		return time.Now().In(loc)
	}
}
