package physics

import "math"

// Vec3 is a 3D vector in scene units. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Zero is the zero vector.
var Zero = Vec3{}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) IsZero() bool { return v == Zero }

// Distance computes Euclidean distance between two points.
func Distance(a, b Vec3) float64 {
	d := b.Sub(a)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}
