package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/zeusync/collapse/internal/core/observability/log"
)

// Metrics provides runtime statistics for a Clock.
type Metrics struct {
	TickCount          uint64
	TotalTickTime      time.Duration
	AverageTickTime    time.Duration
	MaxTickTime        time.Duration
	LastTickDuration   time.Duration
	LastTickAt         time.Time
	RunningSince       time.Time
	StoppedAt          time.Time
	CancelledCallbacks uint64
}

// Clock advances a simulation Context one tick per scheduled callback.
// It has no timer of its own.
type Clock struct {
	sim    *Context
	logger log.Log

	mu      sync.Mutex
	metrics Metrics
}

func NewClock(sim *Context, logger log.Log) *Clock {
	return &Clock{
		sim:    sim,
		logger: logger.With(log.String("component", "clock")),
	}
}

// Tick advances the simulation by one logical tick and reports the result
// to the renderer.
func (c *Clock) Tick() {
	start := time.Now()

	c.sim.step()
	if f, ok := c.sim.renderer.(FrameFlusher); ok {
		f.Flush()
	}

	elapsed := time.Since(start)

	c.mu.Lock()
	m := &c.metrics
	m.TickCount++
	m.TotalTickTime += elapsed
	m.AverageTickTime = m.TotalTickTime / time.Duration(m.TickCount)
	if elapsed > m.MaxTickTime {
		m.MaxTickTime = elapsed
	}
	m.LastTickDuration = elapsed
	m.LastTickAt = start
	c.mu.Unlock()
}

// Run schedules the first tick and returns immediately. Every tick requests
// the next one from s, so exactly one tick runs per scheduled callback.
// Once ctx is cancelled the next callback stops the chain and the returned
// channel is closed.
func (c *Clock) Run(ctx context.Context, s Scheduler) <-chan struct{} {
	done := make(chan struct{})

	c.mu.Lock()
	c.metrics.RunningSince = time.Now()
	c.mu.Unlock()

	var frame func()
	frame = func() {
		if ctx.Err() != nil {
			c.mu.Lock()
			c.metrics.CancelledCallbacks++
			c.metrics.StoppedAt = time.Now()
			ticks := c.metrics.TickCount
			c.mu.Unlock()

			c.logger.Info("Clock stopped", log.Uint64("ticks", ticks))
			close(done)
			return
		}

		c.Tick()
		s.RequestNextTick(frame)
	}
	s.RequestNextTick(frame)

	return done
}

// Metrics returns a copy of the clock statistics.
func (c *Clock) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}
