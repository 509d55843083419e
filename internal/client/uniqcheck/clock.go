package uniqcheck

import "time"

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

// Clock schedules debounce timers.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock uses the time package.
type RealClock struct{}

// AfterFunc calls time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
