package scheduler

import "time"

// Clock creates timers. Replaced by fake clock in tests
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer handle that can be cancelled
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is backed by time.AfterFunc
var RealClock Clock = realClock{}
