package simulation

import "errors"

var (
	ErrSchedulerStopped = errors.New("scheduler stopped")
	ErrSchedulerRunning = errors.New("scheduler already running")
)
