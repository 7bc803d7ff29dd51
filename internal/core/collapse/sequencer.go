package collapse

import (
	"math"

	"github.com/zeusync/collapse/internal/core/systems/physics"
)

// State is the phase of a strength test.
type State uint8

const (
	StateIdle State = iota
	StateShaking
	StateSettling
	StateFalling
	StateCollapsed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateShaking:
		return "shaking"
	case StateSettling:
		return "settling"
	case StateFalling:
		return "falling"
	case StateCollapsed:
		return "collapsed"
	default:
		return "unknown"
	}
}

const (
	// ShakeTicks is the length of the shaking phase, independent of strength.
	ShakeTicks = 100
	// FallStep is the height lost per falling tick.
	FallStep = 0.1
	// TiltStep is the rotation about X gained per falling tick, in radians.
	TiltStep = 0.05
	// DefaultDebrisCount is the number of particles a collapsed building leaves.
	DefaultDebrisCount = 20

	heightEpsilon = 1e-9
)

// Step describes what a single Advance did.
type Step struct {
	From State
	To   State

	// Tick is the shake or fall tick number reached, starting at 1.
	Tick int

	// Decided is set on the tick that ends the shaking phase.
	Decided bool
	Sample  float64
	Fell    bool

	// Spawned is the number of debris particles created on collapse.
	Spawned int
	Impact  physics.Vec3
}

// Changed reports whether the step moved the sequencer to another state.
func (s Step) Changed() bool { return s.From != s.To }

// Sequencer drives a building through shake, then settle or fall, then debris.
// It holds no timer: Advance is called once per tick by the owner.
type Sequencer struct {
	debris      *physics.DebrisField
	rng         physics.Source
	debrisCount int

	building *BuildingProxy
	state    State

	tickCount int
	fallTicks int

	shakeAmplitude  float64
	fallProbability float64
	restHeight      float64
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithDebrisCount overrides the number of particles spawned on collapse.
func WithDebrisCount(n int) SequencerOption {
	return func(s *Sequencer) {
		if n >= 0 {
			s.debrisCount = n
		}
	}
}

func NewSequencer(debris *physics.DebrisField, rng physics.Source, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		debris:      debris,
		rng:         rng,
		debrisCount: DefaultDebrisCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a strength test on b. A test already running on the same
// building is restarted from the beginning with b's current strength.
func (s *Sequencer) Start(b *BuildingProxy) error {
	if b == nil || !b.Alive {
		return ErrNoBuildingPresent
	}

	if s.building == b && s.Running() {
		// Undo the interrupted test before shaking again.
		b.Pose = Pose{}
		b.Position.Y = s.restHeight
	} else {
		s.restHeight = b.Position.Y
	}

	s.building = b
	s.state = StateShaking
	s.tickCount = 0
	s.fallTicks = 0
	s.shakeAmplitude = (1 - b.Strength) * 0.5
	s.fallProbability = 0.5 - b.Strength

	return nil
}

// Reset abandons any test in progress and forgets the building.
func (s *Sequencer) Reset() {
	s.building = nil
	s.state = StateIdle
	s.tickCount = 0
	s.fallTicks = 0
}

// Advance performs one tick of the current phase.
func (s *Sequencer) Advance() Step {
	step := Step{From: s.state}

	switch s.state {
	case StateShaking:
		s.shake(&step)
	case StateSettling:
		s.settle()
	case StateFalling:
		s.fall(&step)
	}

	step.To = s.state
	return step
}

func (s *Sequencer) shake(step *Step) {
	b := s.building
	t := float64(s.tickCount)
	b.Pose.PositionOffset.X = math.Sin(t/4) * s.shakeAmplitude
	b.Pose.RotationOffset.Z = math.Sin(t/8) * s.shakeAmplitude

	s.tickCount++
	step.Tick = s.tickCount
	if s.tickCount < ShakeTicks {
		return
	}

	// The fate of the building is sampled once, here.
	r := s.rng.Float64()
	step.Decided = true
	step.Sample = r
	if r < s.fallProbability {
		step.Fell = true
		s.state = StateFalling
	} else {
		s.state = StateSettling
	}
}

func (s *Sequencer) settle() {
	b := s.building
	b.Pose.PositionOffset.X = 0
	b.Pose.RotationOffset.Z = 0
	b.Position.Y = s.restHeight
	s.state = StateIdle
}

func (s *Sequencer) fall(step *Step) {
	b := s.building
	s.fallTicks++
	step.Tick = s.fallTicks

	b.Pose.RotationOffset.X += TiltStep
	// Derived from the tick count so the floor is hit on an exact tick.
	b.Position.Y = s.restHeight - FallStep*float64(s.fallTicks)
	if b.Position.Y > heightEpsilon {
		return
	}

	b.Position.Y = 0
	impact := b.WorldPosition()
	s.debris.Spawn(impact, s.debrisCount)
	b.Alive = false

	s.state = StateCollapsed
	step.Spawned = s.debrisCount
	step.Impact = impact
}

func (s *Sequencer) State() State { return s.state }

// Running reports whether a test is in progress.
func (s *Sequencer) Running() bool {
	return s.state == StateShaking || s.state == StateSettling || s.state == StateFalling
}

func (s *Sequencer) Building() *BuildingProxy { return s.building }

func (s *Sequencer) TickCount() int { return s.tickCount }

func (s *Sequencer) ShakeAmplitude() float64 { return s.shakeAmplitude }

func (s *Sequencer) FallProbability() float64 { return s.fallProbability }
