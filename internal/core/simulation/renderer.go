package simulation

import (
	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/systems/physics"
)

// Handle identifies an object owned by a Renderer.
type Handle string

// Renderer displays the simulation. The simulation never reads back from it.
type Renderer interface {
	// ShowBuilding creates and displays a building of the given material.
	ShowBuilding(material collapse.Material) (Handle, error)
	RemoveBuilding(h Handle)
	// ApplyPose moves a building by an offset from its placement.
	ApplyPose(h Handle, positionOffset, rotationOffset physics.Vec3)

	SpawnDebrisMesh(position physics.Vec3) Handle
	UpdateDebrisMesh(h Handle, position physics.Vec3)
}

// FrameFlusher is implemented by renderers that batch updates per tick.
// Flush is called once after every tick has been reported.
type FrameFlusher interface {
	Flush()
}
