package simulation

import "github.com/zeusync/collapse/internal/core/systems/physics"

// Event types published on the bus.
const (
	EventBuildingBuilt     = "building.built"
	EventTestStarted       = "test.started"
	EventTestDecided       = "test.decided"
	EventTestSettled       = "test.settled"
	EventBuildingCollapsed = "building.collapsed"
)

const eventSource = "simulation"

type BuildingBuilt struct {
	BuildingID string  `json:"buildingId"`
	Material   string  `json:"material"`
	Strength   float64 `json:"strength"`
}

type TestStarted struct {
	BuildingID      string  `json:"buildingId"`
	ShakeAmplitude  float64 `json:"shakeAmplitude"`
	FallProbability float64 `json:"fallProbability"`
}

type TestDecided struct {
	BuildingID string  `json:"buildingId"`
	Sample     float64 `json:"sample"`
	Fell       bool    `json:"fell"`
}

type TestSettled struct {
	BuildingID string `json:"buildingId"`
}

type BuildingCollapsed struct {
	BuildingID string       `json:"buildingId"`
	Impact     physics.Vec3 `json:"impact"`
	Debris     int          `json:"debris"`
}
