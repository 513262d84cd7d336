package lookup

import "time"

// Timer is a pending quiet-period callback.
type Timer interface {
	Stop() bool
}

// Clock schedules quiet-period callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock schedules with time.AfterFunc.
func RealClock() Clock { return realClock{} }
