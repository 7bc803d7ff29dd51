package collapse

import (
	"fmt"
	"strings"
)

// Material is the kind of building material.
type Material string

const (
	Wood     Material = "wood"
	Concrete Material = "concrete"
	Steel    Material = "steel"
)

// Materials lists every supported material in display order.
var Materials = []Material{Wood, Concrete, Steel}

// ParseMaterial resolves a material name. Names are case-insensitive;
// anything other than wood, concrete or steel is rejected.
func ParseMaterial(name string) (Material, error) {
	m := Material(strings.ToLower(strings.TrimSpace(name)))
	switch m {
	case Wood, Concrete, Steel:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMaterialKind, name)
	}
}

// Strength returns the material strength in [0,1].
// Weaker materials shake harder and are more likely to fall.
func (m Material) Strength() float64 {
	switch m {
	case Wood:
		return 0.3
	case Concrete:
		return 0.7
	default:
		return 1.0
	}
}

func (m Material) String() string { return string(m) }
