package hive

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Blocked reports whether the straight segment from a to b crosses a solid
// wall. Segments through the entrance gap are not blocked.
func (h *Hive) Blocked(a, b mgl64.Vec2) bool {
	for i := range h.walls {
		if _, ok := h.walls[i].crossing(a, b); ok {
			return true
		}
	}
	return false
}

// Route returns the waypoints to pass, in order, when travelling from one
// point to another. Trips into or out of the hive always go through the
// entrance approach points so the gap is crossed square on; outside trips
// the hive body blocks go around its corners. clearance is how far
// waypoints stand off the walls.
func (h *Hive) Route(from, to mgl64.Vec2, clearance float64) []mgl64.Vec2 {
	if !h.Enabled() {
		return nil
	}
	fromInside := h.Contains(from)
	toInside := h.Contains(to)
	if fromInside == toInside && !h.Blocked(from, to) {
		return nil
	}
	outer, inner := h.ApproachPoints(clearance)

	switch {
	case fromInside && !toInside:
		path := []mgl64.Vec2{inner, outer}
		if h.Blocked(outer, to) {
			path = append(path, h.detour(outer, to, clearance)...)
		}
		return path
	case !fromInside && toInside:
		var path []mgl64.Vec2
		if h.Blocked(from, outer) {
			path = h.detour(from, outer, clearance)
		}
		return append(path, outer, inner)
	case !fromInside && !toInside:
		return h.detour(from, to, clearance)
	default:
		// A segment between two interior points cannot cross a wall of a
		// convex outline; it can only graze one.
		return nil
	}
}

// corners returns the rectangle corners pushed diagonally outward by
// clearance, clockwise from top-left.
func (h *Hive) corners(clearance float64) [4]mgl64.Vec2 {
	c := clearance
	return [4]mgl64.Vec2{
		{h.X - c, h.Y - c},
		{h.X + h.W + c, h.Y - c},
		{h.X + h.W + c, h.Y + h.H + c},
		{h.X - c, h.Y + h.H + c},
	}
}

// detour finds the shortest path around the outside of the hive through
// one corner, or two adjacent corners when a single one is not enough.
func (h *Hive) detour(from, to mgl64.Vec2, clearance float64) []mgl64.Vec2 {
	cs := h.corners(clearance)
	bestLen := math.Inf(1)
	var best []mgl64.Vec2

	for _, c := range cs {
		if h.Blocked(from, c) || h.Blocked(c, to) {
			continue
		}
		l := from.Sub(c).Len() + c.Sub(to).Len()
		if l < bestLen {
			bestLen = l
			best = []mgl64.Vec2{c}
		}
	}
	if best != nil {
		return best
	}

	for i := range cs {
		for _, j := range [2]int{(i + 1) % 4, (i + 3) % 4} {
			a, b := cs[i], cs[j]
			if h.Blocked(from, a) || h.Blocked(a, b) || h.Blocked(b, to) {
				continue
			}
			l := from.Sub(a).Len() + a.Sub(b).Len() + b.Sub(to).Len()
			if l < bestLen {
				bestLen = l
				best = []mgl64.Vec2{a, b}
			}
		}
	}
	return best
}
