// Bee spawning: creates the initial colony with roles, positions,
// velocities, and starting energy.
package agents

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/hive"
	"github.com/talgya/beehive/internal/mathx"
)

// QueenRadiusScale enlarges the queen relative to workers.
const QueenRadiusScale = 1.4

// roleShares is the cumulative share of each worker role.
var roleShares = [...]struct {
	role Role
	upTo float64
}{
	{RoleForager, 0.35},
	{RoleScout, 0.45},
	{RoleNurse, 0.65},
	{RoleHousekeeper, 0.80},
	{RoleStorage, 0.90},
	{RoleGuard, 1.00},
}

// Spawner creates bees for the simulation. It draws from the simulation's
// RNG so a seed reproduces the whole colony.
type Spawner struct {
	rng *rand.Rand
}

// NewSpawner creates a bee spawner drawing from rng.
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{rng: rng}
}

// SpawnColony creates p.BeeCount bees. Bee 0 is always the queen.
func (s *Spawner) SpawnColony(p *config.Params, h *hive.Hive) []Bee {
	bees := make([]Bee, p.BeeCount)
	for i := range bees {
		s.spawnOne(&bees[i], i, p, h)
	}
	return bees
}

func (s *Spawner) spawnOne(b *Bee, i int, p *config.Params, h *hive.Hive) {
	role := RoleQueen
	if i > 0 {
		role = s.workerRole()
	}

	radius := p.BeeRadiusPx
	if role == RoleQueen {
		radius *= QueenRadiusScale
	}

	b.Role = role
	b.Radius = radius
	b.Color = p.BeeColor
	b.Capacity = p.Bee.CapacityUl
	b.HarvestRate = p.Bee.HarvestRateUlps
	b.TargetTile = NoTile
	b.Energy = 0.5 + 0.5*s.rng.Float64()
	if role == RoleQueen {
		b.AgeDays = 30 + 60*s.rng.Float64()
	} else {
		b.AgeDays = 40 * s.rng.Float64()
	}

	switch {
	case role == RoleQueen && h.Enabled():
		b.Pos = h.Center()
	case !role.Forages() && h.Enabled():
		b.Pos = s.insideHive(h, radius+h.SafetyMargin)
	default:
		b.Pos = s.inWorld(p, h, radius)
	}
	b.InsideHive = h.Contains(b.Pos)

	b.Vel, b.CruiseSpeed = s.spawnVelocity(&p.Motion)

	b.Mode = ModeIdle
	b.Intent = IntentRest
	if role.Forages() && (!h.Enabled() || !b.InsideHive) {
		b.Mode = ModeOutbound
		b.Intent = IntentFindPatch
		if role == RoleScout {
			b.Intent = IntentExplore
		}
	}
}

func (s *Spawner) workerRole() Role {
	r := s.rng.Float64()
	for _, share := range roleShares {
		if r < share.upTo {
			return share.role
		}
	}
	return RoleGuard
}

// insideHive returns a uniform point in the hive rectangle shrunk by inset.
func (s *Spawner) insideHive(h *hive.Hive, inset float64) mgl64.Vec2 {
	w := h.W - 2*inset
	ht := h.H - 2*inset
	if w <= 0 || ht <= 0 {
		return h.Center()
	}
	return mgl64.Vec2{
		h.X + inset + s.rng.Float64()*w,
		h.Y + inset + s.rng.Float64()*ht,
	}
}

// inWorld returns a uniform point in the world that does not overlap a
// hive wall, retrying a few times before accepting an overlap.
func (s *Spawner) inWorld(p *config.Params, h *hive.Hive, radius float64) mgl64.Vec2 {
	var pos mgl64.Vec2
	for try := 0; try < 8; try++ {
		pos = mgl64.Vec2{
			uniform(s.rng, radius, p.WorldWidthPx-radius),
			uniform(s.rng, radius, p.WorldHeightPx-radius),
		}
		if h.Penetration(pos, radius) == 0 {
			break
		}
	}
	return pos
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return (lo + hi) * 0.5
	}
	return lo + rng.Float64()*(hi-lo)
}

// spawnVelocity draws an initial velocity under the configured spawn mode
// and returns it with its speed. Unvalidated modes spawn uniformly.
func (s *Spawner) spawnVelocity(m *config.MotionParams) (mgl64.Vec2, float64) {
	switch m.SpawnMode {
	case config.SpawnGaussianDirection:
		return s.gaussianVelocity(m)
	case config.SpawnUniformDirection:
		return s.uniformVelocity(m)
	}
	return s.uniformVelocity(m)
}

func (s *Spawner) uniformVelocity(m *config.MotionParams) (mgl64.Vec2, float64) {
	angle := s.rng.Float64() * 2 * math.Pi
	speed := uniform(s.rng, m.MinSpeed, m.MaxSpeed)
	return mathx.FromAngle(angle, speed), speed
}

func (s *Spawner) gaussianVelocity(m *config.MotionParams) (mgl64.Vec2, float64) {
	dir := mathx.SafeNormalize(mgl64.Vec2{s.rng.NormFloat64(), s.rng.NormFloat64()})
	if dir.Len() == 0 {
		dir = mgl64.Vec2{1, 0}
	}
	speed := mathx.Clamp(m.SpawnSpeedMean+m.SpawnSpeedStd*s.rng.NormFloat64(), m.MinSpeed, m.MaxSpeed)
	return dir.Mul(speed), speed
}
