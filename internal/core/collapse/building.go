package collapse

import (
	"github.com/google/uuid"

	"github.com/zeusync/collapse/internal/core/systems/physics"
)

// PlacementHeight is the height of the building's center when placed on the ground.
const PlacementHeight = 3.0

// Pose is a transient display offset, separate from the simulated position.
type Pose struct {
	PositionOffset physics.Vec3 `json:"positionOffset"`
	RotationOffset physics.Vec3 `json:"rotationOffset"`
}

// BuildingProxy is the simulation-side stand-in for a rendered building.
type BuildingProxy struct {
	ID       string
	Material Material
	Strength float64

	// BasePosition is the ground placement and never changes.
	BasePosition physics.Vec3
	// Position is the simulated position; only its height changes while falling.
	Position physics.Vec3
	Pose     Pose

	Alive bool
}

// NewBuilding places a new building of the given material on the ground.
func NewBuilding(material Material) *BuildingProxy {
	base := physics.Vec3{Y: PlacementHeight}
	return &BuildingProxy{
		ID:           uuid.NewString(),
		Material:     material,
		Strength:     material.Strength(),
		BasePosition: base,
		Position:     base,
		Alive:        true,
	}
}

// WorldPosition is the simulated position with the pose offset applied.
func (b *BuildingProxy) WorldPosition() physics.Vec3 {
	return b.Position.Add(b.Pose.PositionOffset)
}

// DisplayOffset is the total offset from the base position, as shown to the viewer.
func (b *BuildingProxy) DisplayOffset() physics.Vec3 {
	return b.WorldPosition().Sub(b.BasePosition)
}
