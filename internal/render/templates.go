package render

import (
	"fmt"
	"math"

	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/systems/physics"
)

// Mesh describes one displayable primitive. Size is interpreted per geometry:
// box (w,h,d), plane (w,h), cone (radius,height,segments), cylinder (top,bottom,height).
type Mesh struct {
	Name     string       `json:"name"`
	Geometry string       `json:"geometry"`
	Size     []float64    `json:"size"`
	Color    string       `json:"color"`
	Texture  string       `json:"texture,omitempty"`
	Opacity  float64      `json:"opacity,omitempty"`
	Position physics.Vec3 `json:"position"`
	Rotation physics.Vec3 `json:"rotation"`
}

// BuildingTemplate is the fixed, cosmetic geometry of a building.
// Part positions are relative to the body.
type BuildingTemplate struct {
	Material collapse.Material `json:"material"`
	Body     Mesh              `json:"body"`
	Parts    []Mesh            `json:"parts"`
}

type Camera struct {
	FOV      float64      `json:"fov"`
	Near     float64      `json:"near"`
	Far      float64      `json:"far"`
	Position physics.Vec3 `json:"position"`
}

type Light struct {
	Kind      string       `json:"kind"`
	Color     string       `json:"color"`
	Intensity float64      `json:"intensity"`
	Position  physics.Vec3 `json:"position"`
}

// Scene is the static part of the view, sent once to every viewer.
type Scene struct {
	Background string  `json:"background"`
	Camera     Camera  `json:"camera"`
	Lights     []Light `json:"lights"`
	Ground     Mesh    `json:"ground"`
	Debris     Mesh    `json:"debris"`
}

const textureBase = "https://threejs.org/examples/textures/"

var materialLooks = map[collapse.Material]struct {
	color   uint32
	texture string
}{
	collapse.Wood:     {0x8B4513, textureBase + "wood.jpg"},
	collapse.Concrete: {0x777777, textureBase + "concrete.jpg"},
	collapse.Steel:    {0xcccccc, textureBase + "steel.jpg"},
}

func hexColor(c uint32) string { return fmt.Sprintf("#%06x", c) }

// DefaultScene is the ground, camera and lighting of the test site.
func DefaultScene() Scene {
	return Scene{
		Background: hexColor(0xcfe8ff),
		Camera: Camera{
			FOV:      60,
			Near:     0.1,
			Far:      1000,
			Position: physics.Vec3{X: 5, Y: 5, Z: 10},
		},
		Lights: []Light{
			{Kind: "directional", Color: hexColor(0xffffff), Intensity: 1, Position: physics.Vec3{X: 10, Y: 20, Z: 10}},
			{Kind: "ambient", Color: hexColor(0x888888), Intensity: 1},
		},
		Ground: Mesh{
			Name:     "ground",
			Geometry: "plane",
			Size:     []float64{50, 50},
			Color:    hexColor(0xaaaaaa),
			Rotation: physics.Vec3{X: -math.Pi / 2},
		},
		Debris: Mesh{
			Name:     "debris",
			Geometry: "box",
			Size:     []float64{0.2, 0.2, 0.2},
			Color:    hexColor(0x555555),
		},
	}
}

// TemplateFor returns the building template of a material.
func TemplateFor(m collapse.Material) (BuildingTemplate, error) {
	look, ok := materialLooks[m]
	if !ok {
		return BuildingTemplate{}, fmt.Errorf("%w: %q", collapse.ErrInvalidMaterialKind, string(m))
	}

	t := BuildingTemplate{
		Material: m,
		Body: Mesh{
			Name:     "body",
			Geometry: "box",
			Size:     []float64{4, 6, 4},
			Color:    hexColor(look.color),
			Texture:  look.texture,
			Position: physics.Vec3{Y: collapse.PlacementHeight},
		},
	}
	t.Parts = append(t.Parts, windows()...)
	t.Parts = append(t.Parts, roof())
	t.Parts = append(t.Parts, reinforcements()...)
	return t, nil
}

func windows() []Mesh {
	out := make([]Mesh, 0, 2)
	for i, x := range []float64{-1.5, 1.5} {
		out = append(out, Mesh{
			Name:     fmt.Sprintf("window-%d", i+1),
			Geometry: "plane",
			Size:     []float64{1.5, 1.5},
			Color:    hexColor(0x87CEEB),
			Opacity:  0.7,
			Position: physics.Vec3{X: x, Y: 2, Z: 2.01},
		})
	}
	return out
}

func roof() Mesh {
	return Mesh{
		Name:     "roof",
		Geometry: "cone",
		Size:     []float64{2.5, 1.5, 4},
		Color:    hexColor(0x777777),
		Position: physics.Vec3{Y: 6.5},
		Rotation: physics.Vec3{Y: math.Pi / 4},
	}
}

// reinforcements are the four corner columns.
func reinforcements() []Mesh {
	out := make([]Mesh, 0, 4)
	for i := 0; i < 4; i++ {
		x, z := 1.8, 1.8
		if i%2 == 0 {
			x = -1.8
		}
		if i >= 2 {
			z = -1.8
		}
		out = append(out, Mesh{
			Name:     fmt.Sprintf("reinforcement-%d", i+1),
			Geometry: "cylinder",
			Size:     []float64{0.1, 0.1, 6},
			Color:    hexColor(0x222222),
			Position: physics.Vec3{X: x, Y: 3, Z: z},
		})
	}
	return out
}
