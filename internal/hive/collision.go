package hive

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Contact is a body overlapping a wall.
type Contact struct {
	Normal      mgl64.Vec2 // push direction
	Penetration float64
}

// Result summarizes one call to Resolve.
type Result struct {
	Contacts  int  // pushes applied
	Reflected bool // velocity was reflected at least once
	Tunneled  bool // the step crossed a solid wall and was pulled back
}

// side returns +1 when p is on the outward side of w, -1 otherwise.
func (w *Wall) side(p mgl64.Vec2) float64 {
	if p.Sub(w.A).Dot(w.Normal) >= 0 {
		return 1
	}
	return -1
}

// Contact returns the overlap between a disc at p and the wall. prev
// decides the push side when the center lies exactly on the wall.
func (w *Wall) Contact(p, prev mgl64.Vec2, radius float64) (Contact, bool) {
	d := w.B.Sub(w.A)
	length := d.Len()
	if length <= 0 {
		return Contact{}, false
	}
	u := d.Mul(1 / length)
	s := p.Sub(w.A).Dot(u)

	var closest mgl64.Vec2
	switch {
	case s < 0:
		if !w.CapA {
			return Contact{}, false
		}
		closest = w.A
	case s > length:
		if !w.CapB {
			return Contact{}, false
		}
		closest = w.B
	default:
		closest = w.A.Add(u.Mul(s))
	}

	diff := p.Sub(closest)
	dist := diff.Len()
	if dist >= radius {
		return Contact{}, false
	}
	n := w.Normal.Mul(w.side(prev))
	if dist > 1e-9 {
		n = diff.Mul(1 / dist)
	}
	return Contact{Normal: n, Penetration: radius - dist}, true
}

// crossing returns the point where segment p0-p1 crosses the wall.
func (w *Wall) crossing(p0, p1 mgl64.Vec2) (mgl64.Vec2, bool) {
	r := p1.Sub(p0)
	s := w.B.Sub(w.A)
	denom := cross(r, s)
	if math.Abs(denom) < 1e-12 {
		return mgl64.Vec2{}, false
	}
	qp := w.A.Sub(p0)
	t := cross(qp, s) / denom
	u := cross(qp, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return mgl64.Vec2{}, false
	}
	return p0.Add(r.Mul(t)), true
}

func cross(a, b mgl64.Vec2) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}

// reflect scales the normal component of vel by -restitution and the
// tangential component by damp when vel points into the wall.
func (h *Hive) reflect(vel *mgl64.Vec2, n mgl64.Vec2) bool {
	vn := vel.Dot(n)
	if vn >= 0 {
		return false
	}
	tangent := vel.Sub(n.Mul(vn))
	*vel = n.Mul(-h.Restitution * vn).Add(tangent.Mul(h.TangentDamp))
	return true
}

// Resolve keeps a disc of the given radius out of the hive walls. prev is
// the disc's position before this step's motion. Each iteration pushes the
// disc out along the contact of least penetration by that penetration plus
// the safety margin. Discs over the entrance gap touch no wall.
func (h *Hive) Resolve(pos, vel *mgl64.Vec2, prev mgl64.Vec2, radius float64) Result {
	var res Result
	if !h.Enabled() || len(h.walls) == 0 {
		return res
	}

	// A step longer than the wall contact zone may jump a wall entirely.
	for i := range h.walls {
		w := &h.walls[i]
		hit, ok := w.crossing(prev, *pos)
		if !ok {
			continue
		}
		n := w.Normal.Mul(w.side(prev))
		*pos = hit.Add(n.Mul(radius + h.SafetyMargin))
		res.Tunneled = true
		if h.reflect(vel, n) {
			res.Reflected = true
		}
		break
	}

	for iter := 0; iter < h.MaxIters; iter++ {
		best := Contact{Penetration: math.Inf(1)}
		found := false
		for i := range h.walls {
			c, ok := h.walls[i].Contact(*pos, prev, radius)
			if ok && c.Penetration < best.Penetration {
				best = c
				found = true
			}
		}
		if !found {
			break
		}
		*pos = pos.Add(best.Normal.Mul(best.Penetration + h.SafetyMargin))
		res.Contacts++
		if h.reflect(vel, best.Normal) {
			res.Reflected = true
		}
	}
	return res
}

// Penetration returns the deepest wall overlap of a disc at p, or zero.
func (h *Hive) Penetration(p mgl64.Vec2, radius float64) float64 {
	deepest := 0.0
	for i := range h.walls {
		if c, ok := h.walls[i].Contact(p, p, radius); ok && c.Penetration > deepest {
			deepest = c.Penetration
		}
	}
	return deepest
}
