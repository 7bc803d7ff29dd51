package collapse

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/collapse/internal/core/systems/physics"
)

// constSource always returns the same sample.
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func newTestSequencer(rng physics.Source) (*Sequencer, *physics.DebrisField) {
	field := physics.NewDebrisField(rng)
	return NewSequencer(field, rng), field
}

func runUntilIdleOrCollapsed(t *testing.T, s *Sequencer) int {
	t.Helper()
	for i := 1; i <= 1000; i++ {
		s.Advance()
		if !s.Running() {
			return i
		}
	}
	t.Fatal("sequencer did not finish")
	return 0
}

func TestStartRequiresBuilding(t *testing.T) {
	s, _ := newTestSequencer(constSource(0))

	assert.ErrorIs(t, s.Start(nil), ErrNoBuildingPresent)

	b := NewBuilding(Wood)
	b.Alive = false
	assert.ErrorIs(t, s.Start(b), ErrNoBuildingPresent)
	assert.Equal(t, StateIdle, s.State())
}

func TestStartDerivesParameters(t *testing.T) {
	tests := []struct {
		material  Material
		amplitude float64
		fall      float64
	}{
		{Wood, 0.35, 0.2},
		{Concrete, 0.15, -0.2},
		{Steel, 0, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.material.String(), func(t *testing.T) {
			s, _ := newTestSequencer(constSource(0))
			require.NoError(t, s.Start(NewBuilding(tt.material)))

			assert.Equal(t, StateShaking, s.State())
			assert.InDelta(t, tt.amplitude, s.ShakeAmplitude(), 1e-12)
			assert.InDelta(t, tt.fall, s.FallProbability(), 1e-12)
			assert.Zero(t, s.TickCount())
		})
	}
}

func TestShakingLastsExactlyOneHundredTicks(t *testing.T) {
	for _, m := range Materials {
		t.Run(m.String(), func(t *testing.T) {
			s, _ := newTestSequencer(constSource(0.99))
			b := NewBuilding(m)
			require.NoError(t, s.Start(b))
			amp := (1 - m.Strength()) * 0.5

			for tick := 0; tick < ShakeTicks; tick++ {
				require.Equal(t, StateShaking, s.State())
				step := s.Advance()

				assert.InDelta(t, math.Sin(float64(tick)/4)*amp, b.Pose.PositionOffset.X, 1e-12)
				assert.InDelta(t, math.Sin(float64(tick)/8)*amp, b.Pose.RotationOffset.Z, 1e-12)
				assert.Equal(t, tick+1, step.Tick)
				assert.Equal(t, tick == ShakeTicks-1, step.Decided)
			}

			assert.Equal(t, StateSettling, s.State())
		})
	}
}

func TestSteelNeverFalls(t *testing.T) {
	// Even the smallest possible sample cannot beat a negative probability.
	s, field := newTestSequencer(constSource(0))
	b := NewBuilding(Steel)
	require.NoError(t, s.Start(b))

	var decision Step
	for s.State() == StateShaking {
		decision = s.Advance()
	}

	assert.True(t, decision.Decided)
	assert.False(t, decision.Fell)
	assert.Equal(t, StateSettling, s.State())

	step := s.Advance()
	assert.Equal(t, StateSettling, step.From)
	assert.Equal(t, StateIdle, step.To)
	assert.True(t, b.Alive)
	assert.Zero(t, field.Len())
}

func TestSettlingRestoresPose(t *testing.T) {
	s, _ := newTestSequencer(constSource(0.5))
	b := NewBuilding(Wood)
	require.NoError(t, s.Start(b))

	runUntilIdleOrCollapsed(t, s)

	assert.Equal(t, StateIdle, s.State())
	assert.Zero(t, b.Pose.PositionOffset.X)
	assert.Zero(t, b.Pose.RotationOffset.Z)
	assert.Equal(t, PlacementHeight, b.Position.Y)
	assert.True(t, b.Alive)

	// Inert once idle.
	step := s.Advance()
	assert.False(t, step.Changed())
	assert.Equal(t, StateIdle, s.State())
}

func TestFallingTakesThirtyTicksFromPlacementHeight(t *testing.T) {
	s, field := newTestSequencer(constSource(0.1))
	b := NewBuilding(Wood)
	require.NoError(t, s.Start(b))

	for i := 0; i < ShakeTicks; i++ {
		s.Advance()
	}
	require.Equal(t, StateFalling, s.State())
	impactX := b.Pose.PositionOffset.X

	ticks := 0
	for s.State() == StateFalling {
		prev := b.Position.Y
		step := s.Advance()
		ticks++

		assert.Equal(t, ticks, step.Tick)
		assert.InDelta(t, float64(ticks)*TiltStep, b.Pose.RotationOffset.X, 1e-12)
		if s.State() == StateFalling {
			assert.InDelta(t, prev-FallStep, b.Position.Y, 1e-9)
		} else {
			assert.Equal(t, StateCollapsed, step.To)
			assert.Equal(t, DefaultDebrisCount, step.Spawned)
		}
	}

	assert.Equal(t, 30, ticks)
	assert.False(t, b.Alive)
	require.Equal(t, DefaultDebrisCount, field.Len())
	for _, p := range field.Particles() {
		assert.InDelta(t, impactX, p.Position.X, 1e-12)
		assert.Zero(t, p.Position.Y)
	}

	// Collapsed is terminal.
	s.Advance()
	assert.Equal(t, StateCollapsed, s.State())
	assert.Equal(t, DefaultDebrisCount, field.Len())
	assert.ErrorIs(t, s.Start(b), ErrNoBuildingPresent)
}

func TestFallDecisionSampledOnce(t *testing.T) {
	calls := 0
	rng := countingSource{n: &calls, v: 0.9}
	s := NewSequencer(physics.NewDebrisField(rng), rng)
	require.NoError(t, s.Start(NewBuilding(Wood)))

	runUntilIdleOrCollapsed(t, s)
	assert.Equal(t, 1, calls)
}

type countingSource struct {
	n *int
	v float64
}

func (c countingSource) Float64() float64 {
	*c.n++
	return c.v
}

func TestWoodFallRateConvergesToTwentyPercent(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	const runs = 5000

	falls := 0
	for i := 0; i < runs; i++ {
		s := NewSequencer(physics.NewDebrisField(rng), rng, WithDebrisCount(0))
		require.NoError(t, s.Start(NewBuilding(Wood)))
		for s.State() == StateShaking {
			if step := s.Advance(); step.Fell {
				falls++
			}
		}
	}

	assert.InDelta(t, 0.2, float64(falls)/runs, 0.03)
}

func TestRestartWhileFalling(t *testing.T) {
	s, field := newTestSequencer(constSource(0))
	b := NewBuilding(Wood)
	require.NoError(t, s.Start(b))
	for i := 0; i < ShakeTicks+5; i++ {
		s.Advance()
	}
	require.Equal(t, StateFalling, s.State())

	require.NoError(t, s.Start(b))

	assert.Equal(t, StateShaking, s.State())
	assert.Zero(t, s.TickCount())
	assert.Equal(t, PlacementHeight, b.Position.Y)
	assert.Equal(t, Pose{}, b.Pose)
	assert.Zero(t, field.Len())
}

func TestResetForgetsBuilding(t *testing.T) {
	s, _ := newTestSequencer(constSource(0))
	require.NoError(t, s.Start(NewBuilding(Wood)))
	s.Advance()

	s.Reset()

	assert.Nil(t, s.Building())
	assert.Equal(t, StateIdle, s.State())
	assert.False(t, s.Advance().Changed())
}
