// Package mathx holds small numeric helpers shared by the simulation packages.
package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp blends a toward b by t.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// ClampLen scales v down so its length does not exceed max.
func ClampLen(v mgl64.Vec2, max float64) mgl64.Vec2 {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Mul(max / l)
}

// SafeNormalize returns the unit vector of v, or the zero vector when v has no length.
func SafeNormalize(v mgl64.Vec2) mgl64.Vec2 {
	l := v.Len()
	if l < 1e-12 {
		return mgl64.Vec2{}
	}
	return v.Mul(1 / l)
}

// FromAngle returns a vector of the given length pointing at angle radians.
func FromAngle(angle, length float64) mgl64.Vec2 {
	return mgl64.Vec2{math.Cos(angle) * length, math.Sin(angle) * length}
}

// PackRGBA packs normalized color channels into 0xRRGGBBAA.
func PackRGBA(rgba [4]float32) uint32 {
	var out uint32
	for i := 0; i < 4; i++ {
		c := Clamp(rgba[i], 0, 1)
		out = out<<8 | uint32(c*255+0.5)
	}
	return out
}
