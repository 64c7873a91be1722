// Package hive models the hive rectangle, its single entrance gap, and the
// wall collision response applied to bees.
package hive

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/mathx"
)

// Wall is one solid segment of the hive outline. Capped ends are rectangle
// corners and collide as points; uncapped ends border the entrance gap.
type Wall struct {
	A, B   mgl64.Vec2
	Normal mgl64.Vec2 // outward
	CapA   bool
	CapB   bool
}

// Hive is the geometry derived from the hive parameters. It is rebuilt
// whenever parameters are reapplied.
type Hive struct {
	X, Y, W, H    float64
	Side          config.Side
	EntranceT     float64
	EntranceWidth float64
	Restitution   float64
	TangentDamp   float64
	MaxIters      int
	SafetyMargin  float64

	walls []Wall
}

// New derives hive geometry from p. A hive with an empty rectangle is
// disabled and never collides.
func New(p config.HiveParams) Hive {
	h := Hive{
		X:             p.RectX,
		Y:             p.RectY,
		W:             p.RectW,
		H:             p.RectH,
		Side:          p.EntranceSide,
		EntranceT:     mathx.Clamp(p.EntranceT, 0, 1),
		EntranceWidth: p.EntranceWidth,
		Restitution:   p.Restitution,
		TangentDamp:   p.TangentDamp,
		MaxIters:      p.MaxResolveIters,
		SafetyMargin:  p.SafetyMargin,
	}
	if h.Enabled() {
		h.walls = h.buildWalls()
	}
	return h
}

// Enabled reports whether the hive has a non-empty rectangle.
func (h *Hive) Enabled() bool {
	return h.W > 0 && h.H > 0
}

// ContainsPoint reports whether (x, y) lies in the rectangle, edges included.
func (h *Hive) ContainsPoint(x, y float64) bool {
	return h.Enabled() && x >= h.X && x <= h.X+h.W && y >= h.Y && y <= h.Y+h.H
}

// Contains reports whether p lies in the rectangle, edges included.
func (h *Hive) Contains(p mgl64.Vec2) bool {
	return h.ContainsPoint(p.X(), p.Y())
}

// Center returns the middle of the rectangle.
func (h *Hive) Center() mgl64.Vec2 {
	return mgl64.Vec2{h.X + h.W*0.5, h.Y + h.H*0.5}
}

// sideEnds returns the endpoints of the entrance side, ordered so that the
// entrance parameter runs from the first to the second.
func (h *Hive) sideEnds(s config.Side) (a, b mgl64.Vec2) {
	switch s {
	case config.SideTop:
		return mgl64.Vec2{h.X, h.Y}, mgl64.Vec2{h.X + h.W, h.Y}
	case config.SideBottom:
		return mgl64.Vec2{h.X, h.Y + h.H}, mgl64.Vec2{h.X + h.W, h.Y + h.H}
	case config.SideLeft:
		return mgl64.Vec2{h.X, h.Y}, mgl64.Vec2{h.X, h.Y + h.H}
	case config.SideRight:
		return mgl64.Vec2{h.X + h.W, h.Y}, mgl64.Vec2{h.X + h.W, h.Y + h.H}
	default:
		return mgl64.Vec2{h.X, h.Y}, mgl64.Vec2{h.X + h.W, h.Y}
	}
}

func sideNormal(s config.Side) mgl64.Vec2 {
	switch s {
	case config.SideTop:
		return mgl64.Vec2{0, -1}
	case config.SideBottom:
		return mgl64.Vec2{0, 1}
	case config.SideLeft:
		return mgl64.Vec2{-1, 0}
	case config.SideRight:
		return mgl64.Vec2{1, 0}
	default:
		return mgl64.Vec2{0, -1}
	}
}

// EntrancePoint returns the middle of the entrance gap on its side.
func (h *Hive) EntrancePoint() mgl64.Vec2 {
	a, b := h.sideEnds(h.Side)
	return a.Add(b.Sub(a).Mul(h.EntranceT))
}

// EntranceNormal returns the outward normal of the entrance side.
func (h *Hive) EntranceNormal() mgl64.Vec2 {
	return sideNormal(h.Side)
}

// Gap returns the endpoints of the entrance gap, clipped to its side.
func (h *Hive) Gap() (mgl64.Vec2, mgl64.Vec2) {
	a, b := h.sideEnds(h.Side)
	length := b.Sub(a).Len()
	u := mathx.SafeNormalize(b.Sub(a))
	c := h.EntranceT * length
	lo := mathx.Clamp(c-h.EntranceWidth*0.5, 0, length)
	hi := mathx.Clamp(c+h.EntranceWidth*0.5, 0, length)
	return a.Add(u.Mul(lo)), a.Add(u.Mul(hi))
}

// InGap reports whether p projects onto the entrance side within the gap.
func (h *Hive) InGap(p mgl64.Vec2) bool {
	if !h.Enabled() {
		return false
	}
	g0, g1 := h.Gap()
	switch h.Side {
	case config.SideTop, config.SideBottom:
		return p.X() >= g0.X() && p.X() <= g1.X()
	case config.SideLeft, config.SideRight:
		return p.Y() >= g0.Y() && p.Y() <= g1.Y()
	}
	return false
}

// ApproachPoints returns the points just outside and just inside the
// entrance, depth away from the gap center along the side normal.
func (h *Hive) ApproachPoints(depth float64) (outer, inner mgl64.Vec2) {
	e := h.EntrancePoint()
	n := h.EntranceNormal()
	// The inner point never passes the middle of the hive.
	half := h.H * 0.5
	if h.Side == config.SideLeft || h.Side == config.SideRight {
		half = h.W * 0.5
	}
	return e.Add(n.Mul(depth)), e.Sub(n.Mul(min(depth, half)))
}

// Walls returns the solid segments of the hive outline.
func (h *Hive) Walls() []Wall {
	return h.walls
}

func (h *Hive) buildWalls() []Wall {
	sides := [4]config.Side{config.SideTop, config.SideRight, config.SideBottom, config.SideLeft}
	walls := make([]Wall, 0, 5)
	for _, s := range sides {
		a, b := h.sideEnds(s)
		n := sideNormal(s)
		if s != h.Side {
			walls = append(walls, Wall{A: a, B: b, Normal: n, CapA: true, CapB: true})
			continue
		}
		g0, g1 := h.Gap()
		if g0.Sub(a).Len() > 1e-9 {
			walls = append(walls, Wall{A: a, B: g0, Normal: n, CapA: true})
		}
		if b.Sub(g1).Len() > 1e-9 {
			walls = append(walls, Wall{A: g1, B: b, Normal: n, CapB: true})
		}
	}
	return walls
}
