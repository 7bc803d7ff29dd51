package simulation

import (
	"fmt"

	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/events/bus"
	"github.com/zeusync/collapse/internal/core/observability/log"
	"github.com/zeusync/collapse/internal/core/systems/physics"
)

// Context owns all simulation state: the building, the sequencer driving
// it and the debris field. It must only be used from the tick goroutine.
type Context struct {
	renderer Renderer
	events   bus.EventBus
	logger   log.Log

	debris    *physics.DebrisField
	sequencer *collapse.Sequencer

	building       *collapse.BuildingProxy
	buildingHandle Handle
	debrisHandles  []Handle
}

// Snapshot is a read-only view of the simulation.
type Snapshot struct {
	BuildingID     string        `json:"buildingId,omitempty"`
	Material       string        `json:"material,omitempty"`
	Strength       float64       `json:"strength"`
	Alive          bool          `json:"alive"`
	Phase          string        `json:"phase"`
	ShakeTick      int           `json:"shakeTick"`
	Position       physics.Vec3  `json:"position"`
	Pose           collapse.Pose `json:"pose"`
	Debris         int           `json:"debris"`
	SettledDebris  int           `json:"settledDebris"`
	FallChance     float64       `json:"fallProbability"`
	ShakeAmplitude float64       `json:"shakeAmplitude"`
}

// NewContext creates an empty scene. events may be nil.
func NewContext(renderer Renderer, rng physics.Source, events bus.EventBus, logger log.Log, opts ...collapse.SequencerOption) *Context {
	debris := physics.NewDebrisField(rng)
	return &Context{
		renderer:  renderer,
		events:    events,
		logger:    logger.With(log.String("component", "simulation")),
		debris:    debris,
		sequencer: collapse.NewSequencer(debris, rng, opts...),
	}
}

// Build replaces the current building with a new one of the named material.
// Any test in progress is abandoned.
func (c *Context) Build(name string) (*collapse.BuildingProxy, error) {
	material, err := collapse.ParseMaterial(name)
	if err != nil {
		return nil, err
	}

	handle, err := c.renderer.ShowBuilding(material)
	if err != nil {
		return nil, fmt.Errorf("show %s building: %w", material, err)
	}

	if c.building != nil && c.building.Alive {
		c.renderer.RemoveBuilding(c.buildingHandle)
	}
	c.sequencer.Reset()

	c.building = collapse.NewBuilding(material)
	c.buildingHandle = handle

	c.logger.Info("Building built",
		log.String("building_id", c.building.ID),
		log.String("material", material.String()),
		log.Float64("strength", c.building.Strength))
	c.publish(EventBuildingBuilt, BuildingBuilt{
		BuildingID: c.building.ID,
		Material:   material.String(),
		Strength:   c.building.Strength,
	})

	return c.building, nil
}

// RunStrengthTest starts shaking the current building.
func (c *Context) RunStrengthTest() error {
	if c.building == nil || !c.building.Alive {
		return collapse.ErrNoBuildingPresent
	}
	if err := c.sequencer.Start(c.building); err != nil {
		return err
	}

	c.logger.Info("Strength test started",
		log.String("building_id", c.building.ID),
		log.Float64("shake_amplitude", c.sequencer.ShakeAmplitude()),
		log.Float64("fall_probability", c.sequencer.FallProbability()))
	c.publish(EventTestStarted, TestStarted{
		BuildingID:      c.building.ID,
		ShakeAmplitude:  c.sequencer.ShakeAmplitude(),
		FallProbability: c.sequencer.FallProbability(),
	})

	return nil
}

// step advances the debris and the sequencer by one tick and reports the
// result to the renderer.
func (c *Context) step() {
	c.debris.Tick()
	st := c.sequencer.Advance()

	b := c.building
	if b != nil && b.Alive && st.From != collapse.StateIdle && st.From != collapse.StateCollapsed {
		c.renderer.ApplyPose(c.buildingHandle, b.DisplayOffset(), b.Pose.RotationOffset)
	}

	for i, p := range c.debris.Particles()[:len(c.debrisHandles)] {
		c.renderer.UpdateDebrisMesh(c.debrisHandles[i], p.Position)
	}

	if st.Decided {
		c.logger.Info("Strength test decided",
			log.String("building_id", b.ID),
			log.Float64("sample", st.Sample),
			log.Bool("fell", st.Fell))
		c.publish(EventTestDecided, TestDecided{BuildingID: b.ID, Sample: st.Sample, Fell: st.Fell})
	}

	if !st.Changed() {
		return
	}

	switch st.To {
	case collapse.StateIdle:
		c.logger.Info("Building settled", log.String("building_id", b.ID))
		c.publish(EventTestSettled, TestSettled{BuildingID: b.ID})
	case collapse.StateCollapsed:
		c.collapse(st)
	}
}

func (c *Context) collapse(st collapse.Step) {
	c.renderer.RemoveBuilding(c.buildingHandle)
	c.buildingHandle = ""

	for _, p := range c.debris.Particles()[len(c.debrisHandles):] {
		c.debrisHandles = append(c.debrisHandles, c.renderer.SpawnDebrisMesh(p.Position))
	}

	c.logger.Info("Building collapsed",
		log.String("building_id", c.building.ID),
		log.Int("debris", st.Spawned),
		log.Int("debris_total", c.debris.Len()))
	c.publish(EventBuildingCollapsed, BuildingCollapsed{
		BuildingID: c.building.ID,
		Impact:     st.Impact,
		Debris:     st.Spawned,
	})
}

func (c *Context) publish(eventType string, data any) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(bus.NewEvent(eventType, eventSource, data)); err != nil {
		c.logger.Warn("Event handler failed", log.String("event", eventType), log.Error(err))
	}
}

// Snapshot returns the current simulation state.
func (c *Context) Snapshot() Snapshot {
	s := Snapshot{
		Phase:         c.sequencer.State().String(),
		ShakeTick:     c.sequencer.TickCount(),
		Debris:        c.debris.Len(),
		SettledDebris: c.debris.SettledCount(),
	}
	if c.sequencer.Building() != nil {
		s.FallChance = c.sequencer.FallProbability()
		s.ShakeAmplitude = c.sequencer.ShakeAmplitude()
	}
	if b := c.building; b != nil {
		s.BuildingID = b.ID
		s.Material = b.Material.String()
		s.Strength = b.Strength
		s.Alive = b.Alive
		s.Position = b.WorldPosition()
		s.Pose = b.Pose
	}
	return s
}

func (c *Context) Building() *collapse.BuildingProxy { return c.building }

func (c *Context) Debris() *physics.DebrisField { return c.debris }

func (c *Context) Sequencer() *collapse.Sequencer { return c.sequencer }
