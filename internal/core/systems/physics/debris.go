package physics

// Source is the random number source used to scatter debris.
// *math/rand/v2.Rand satisfies it.
type Source interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
}

const (
	// spread bounds the horizontal launch speed to [-spread/2, spread/2).
	spread = 0.5
	// lift bounds the vertical launch speed to [0, lift).
	lift = 0.5
)

// DebrisField is an append-only, ordered collection of particles.
// Insertion order is spawn order and stays stable across ticks.
type DebrisField struct {
	rng       Source
	particles []*Particle
}

func NewDebrisField(rng Source) *DebrisField {
	return &DebrisField{rng: rng}
}

// Spawn appends count particles at origin, each launched with a random
// velocity: up to ±0.25 horizontally and [0, 0.5) upwards.
func (f *DebrisField) Spawn(origin Vec3, count int) {
	for i := 0; i < count; i++ {
		f.particles = append(f.particles, &Particle{
			Position: origin,
			Velocity: Vec3{
				X: (f.rng.Float64() - 0.5) * spread,
				Y: f.rng.Float64() * lift,
				Z: (f.rng.Float64() - 0.5) * spread,
			},
		})
	}
}

// Tick advances every particle by one tick. Particles do not interact,
// so the iteration order does not affect the outcome.
func (f *DebrisField) Tick() {
	for _, p := range f.particles {
		p.step()
	}
}

// Particles returns the particles in spawn order. The slice must not be modified.
func (f *DebrisField) Particles() []*Particle { return f.particles }

func (f *DebrisField) Len() int { return len(f.particles) }

// SettledCount returns how many particles have come to rest.
func (f *DebrisField) SettledCount() int {
	n := 0
	for _, p := range f.particles {
		if p.settled {
			n++
		}
	}
	return n
}
