package engine

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// pointTol is the half-size of the box each bee occupies in the index.
const pointTol = 0.005

// beeEntry is one bee position in the spatial index.
type beeEntry struct {
	index int
	x, y  float64
	rect  rtreego.Rect
}

func (e *beeEntry) Bounds() rtreego.Rect {
	return e.rect
}

// beeIndex is an R-tree over bee positions, rebuilt lazily after the bees
// move.
type beeIndex struct {
	tree  *rtreego.Rtree
	valid bool
}

func (ix *beeIndex) invalidate() {
	ix.valid = false
}

func (s *Simulation) beeTree() *rtreego.Rtree {
	if s.index.valid {
		return s.index.tree
	}
	spatials := make([]rtreego.Spatial, len(s.Bees))
	for i := range s.Bees {
		p := s.Bees[i].Pos
		spatials[i] = &beeEntry{
			index: i,
			x:     p.X(),
			y:     p.Y(),
			rect:  rtreego.Point{p.X(), p.Y()}.ToRect(pointTol),
		}
	}
	s.index.tree = rtreego.NewTree(2, 25, 50, spatials...)
	s.index.valid = true
	return s.index.tree
}

// FindBeeNear returns the bee whose center is nearest (x, y) within radius.
// Equally near bees resolve to the lower index.
func (s *Simulation) FindBeeNear(x, y, radius float64) (int, bool) {
	if len(s.Bees) == 0 || radius <= 0 {
		return -1, false
	}
	query := rtreego.Point{x, y}.ToRect(radius)
	best, bestD2 := -1, math.Inf(1)
	for _, obj := range s.beeTree().SearchIntersect(query) {
		e := obj.(*beeEntry)
		dx, dy := e.x-x, e.y-y
		d2 := dx*dx + dy*dy
		if d2 > radius*radius {
			continue
		}
		if d2 < bestD2 || (d2 == bestD2 && e.index < best) {
			best, bestD2 = e.index, d2
		}
	}
	return best, best >= 0
}
