package macro

import (
	"runtime"
	"time"
)

const (
	// Sleeps longer than coarseSleepThreshold hand most of the wait to the
	// scheduler and spin only for the final spinMargin.
	coarseSleepThreshold = 40 * time.Millisecond
	spinMargin           = 20 * time.Millisecond
)

type clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type preciseClock struct{}

func (preciseClock) Now() time.Time {
	return time.Now()
}

func (preciseClock) Sleep(d time.Duration) {
	PreciseSleep(d)
}

// PreciseSleep blocks for d with sub-millisecond accuracy.
func PreciseSleep(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	if d > coarseSleepThreshold {
		time.Sleep(d - spinMargin)
	}
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}
}
