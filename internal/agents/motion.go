package agents

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/mathx"
)

// RandomWalk perturbs the heading by Gaussian jitter and clamps the speed
// to the motion range. A hovering bee resumes at its cruise speed.
func RandomWalk(b *Bee, m *config.MotionParams, rng *rand.Rand, dt float64) {
	speed := b.Vel.Len()
	var heading float64
	if speed < 1e-9 {
		heading = rng.Float64() * 2 * math.Pi
		speed = b.CruiseSpeed
	} else {
		heading = math.Atan2(b.Vel.Y(), b.Vel.X())
	}
	heading += rng.NormFloat64() * m.JitterDegPerSec * dt * math.Pi / 180
	speed = mathx.Clamp(speed, m.MinSpeed, m.MaxSpeed)
	b.Vel = mathx.FromAngle(heading, speed)
}

// Seek steers toward target with acceleration limited to seek_accel and
// speed capped at speed_mps.
func Seek(b *Bee, target mgl64.Vec2, bp *config.BeeParams, dt float64) {
	desired := mathx.SafeNormalize(target.Sub(b.Pos)).Mul(bp.SpeedMps)
	steer := mathx.ClampLen(desired.Sub(b.Vel), bp.SeekAccel*dt)
	b.Vel = mathx.ClampLen(b.Vel.Add(steer), bp.SpeedMps)
}

// Bounce reflects a bee off the world boundary, keeping its disc margin
// inside the edges.
func Bounce(b *Bee, width, height, margin float64) {
	x, y := b.Pos.X(), b.Pos.Y()
	vx, vy := b.Vel.X(), b.Vel.Y()
	inset := margin + b.Radius

	lo, hi := inset, width-inset
	if hi < lo {
		lo, hi = width*0.5, width*0.5
	}
	if x < lo {
		x, vx = lo, math.Abs(vx)
	} else if x > hi {
		x, vx = hi, -math.Abs(vx)
	}

	lo, hi = inset, height-inset
	if hi < lo {
		lo, hi = height*0.5, height*0.5
	}
	if y < lo {
		y, vy = lo, math.Abs(vy)
	} else if y > hi {
		y, vy = hi, -math.Abs(vy)
	}

	b.Pos = mgl64.Vec2{x, y}
	b.Vel = mgl64.Vec2{vx, vy}
}
