package physics

const (
	// FloorY is the height at which debris comes to rest.
	FloorY = 0.1
	// Gravity is subtracted from vertical velocity once per tick.
	Gravity = 0.01
)

// Particle is a free-falling point mass.
type Particle struct {
	Position Vec3
	Velocity Vec3

	settled bool
}

// Settled reports whether the particle has reached the floor.
// A settled particle never moves again.
func (p *Particle) Settled() bool { return p.settled }

// step integrates one tick of linear motion under gravity.
func (p *Particle) step() {
	if p.settled {
		return
	}

	p.Velocity.Y -= Gravity
	p.Position = p.Position.Add(p.Velocity)

	if p.Position.Y < FloorY {
		p.Position.Y = FloorY
		p.Velocity = Zero
		p.settled = true
	}
}
