package simulation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/collapse/internal/core/observability/log"
)

// Scheduler is the host's frame source. Each requested callback runs once,
// on the next frame.
type Scheduler interface {
	RequestNextTick(callback func())
}

// ManualScheduler runs callbacks only when stepped. It drives tests and
// headless runs deterministically.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) RequestNextTick(callback func()) {
	m.mu.Lock()
	m.pending = append(m.pending, callback)
	m.mu.Unlock()
}

// Step runs the oldest pending callback. It reports false when none was pending.
func (m *ManualScheduler) Step() bool {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return false
	}
	cb := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()

	cb()
	return true
}

// StepN runs up to n callbacks and returns how many ran.
func (m *ManualScheduler) StepN(n int) int {
	ran := 0
	for ran < n && m.Step() {
		ran++
	}
	return ran
}

func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// FrameScheduler is a ticker-driven frame loop. Frame callbacks and posted
// commands all run on the goroutine that called Run, so state touched only
// from them needs no locking.
type FrameScheduler struct {
	interval time.Duration
	logger   log.Log

	mu   sync.Mutex
	next []func()

	commands chan func()
	stopped  chan struct{}
	running  atomic.Bool
	frames   atomic.Uint64
}

func NewFrameScheduler(interval time.Duration, logger log.Log) *FrameScheduler {
	return &FrameScheduler{
		interval: interval,
		logger:   logger.With(log.String("component", "frame_scheduler")),
		commands: make(chan func(), 64),
		stopped:  make(chan struct{}),
	}
}

func (f *FrameScheduler) RequestNextTick(callback func()) {
	f.mu.Lock()
	f.next = append(f.next, callback)
	f.mu.Unlock()
}

// Post runs fn on the frame goroutine between frames and waits for it.
func (f *FrameScheduler) Post(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case <-f.stopped:
		return ErrSchedulerStopped
	default:
	}

	select {
	case f.commands <- cmd:
	case <-f.stopped:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-f.stopped:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run blocks, delivering frames until ctx is cancelled. It may be called once.
func (f *FrameScheduler) Run(ctx context.Context) error {
	if !f.running.CompareAndSwap(false, true) {
		return ErrSchedulerRunning
	}
	defer close(f.stopped)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("Frame loop started", log.Duration("interval", f.interval))
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Frame loop stopped", log.Uint64("frames", f.frames.Load()))
			return nil
		case cmd := <-f.commands:
			cmd()
		case <-ticker.C:
			f.frame()
		}
	}
}

func (f *FrameScheduler) frame() {
	f.mu.Lock()
	due := f.next
	f.next = nil
	f.mu.Unlock()

	for _, cb := range due {
		cb()
	}
	f.frames.Add(1)
}

// Frames returns the number of frames delivered so far.
func (f *FrameScheduler) Frames() uint64 { return f.frames.Load() }
