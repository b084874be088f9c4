package goAuthClient

import "time"

// Task is a scheduled callback that can be cancelled before it fires.
type Task interface {
	// Stop cancels the task. It reports whether the call prevented the callback.
	Stop() bool
}

// Scheduler runs callbacks after a delay. f must never run before AfterFunc has
// returned. Tests substitute a manual implementation.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// SystemScheduler schedules on the runtime timer.
type SystemScheduler struct{}

// AfterFunc calls f in its own goroutine after d.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}
