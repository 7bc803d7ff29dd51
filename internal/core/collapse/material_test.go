package collapse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaterial(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     Material
		strength float64
	}{
		{"wood", "wood", Wood, 0.3},
		{"concrete", "concrete", Concrete, 0.7},
		{"steel", "steel", Steel, 1.0},
		{"mixed case", " Steel ", Steel, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMaterial(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
			assert.Equal(t, tt.strength, m.Strength())
		})
	}
}

func TestParseMaterialRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "glass", "woods"} {
		_, err := ParseMaterial(input)
		assert.ErrorIs(t, err, ErrInvalidMaterialKind, "input %q", input)
	}
}

func TestNewBuilding(t *testing.T) {
	b := NewBuilding(Concrete)

	assert.NotEmpty(t, b.ID)
	assert.True(t, b.Alive)
	assert.Equal(t, 0.7, b.Strength)
	assert.Equal(t, PlacementHeight, b.Position.Y)
	assert.Equal(t, b.BasePosition, b.Position)
	assert.True(t, b.DisplayOffset().IsZero())
	assert.NotEqual(t, b.ID, NewBuilding(Concrete).ID)
}
