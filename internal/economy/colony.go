package economy

import (
	"sort"

	"github.com/talgya/beehive/internal/world"
)

// Colony holds the hive's stored nectar and the patches its scouts know.
type Colony struct {
	Reserve   float64 `json:"reserve_uL"`   // nectar unloaded into the hive
	Harvested float64 `json:"harvested_uL"` // total taken from tiles
	Trips     int     `json:"trips"`        // completed unload trips

	known []int // tile indices, ascending
}

// Deposit moves unloaded nectar into the reserve.
func (c *Colony) Deposit(amount float64) {
	if amount > 0 {
		c.Reserve += amount
	}
}

// RecordHarvest adds to the harvested total.
func (c *Colony) RecordHarvest(amount float64) {
	if amount > 0 {
		c.Harvested += amount
	}
}

// Remember adds a patch to the known list. It reports whether the patch
// was new.
func (c *Colony) Remember(idx int) bool {
	i := sort.SearchInts(c.known, idx)
	if i < len(c.known) && c.known[i] == idx {
		return false
	}
	c.known = append(c.known, 0)
	copy(c.known[i+1:], c.known[i:])
	c.known[i] = idx
	return true
}

// Knows reports whether idx is a known patch.
func (c *Colony) Knows(idx int) bool {
	i := sort.SearchInts(c.known, idx)
	return i < len(c.known) && c.known[i] == idx
}

// Known returns the known patch indices in ascending order.
func (c *Colony) Known() []int {
	return c.known
}

// Forget clears the known patches. Used when the world is rebuilt and old
// indices no longer name the same tiles.
func (c *Colony) Forget() {
	c.known = c.known[:0]
}

// NearestPatch returns the index of the closest tile in candidates that
// holds at least minStock nectar. Ties go to the lower index.
func NearestPatch(w *world.World, candidates []int, x, y, minStock float64) (int, bool) {
	best := -1
	bestDist := 0.0
	for _, i := range candidates {
		t := w.At(i)
		if t == nil || t.Terrain != world.TerrainFlowers || t.NectarStock < minStock {
			continue
		}
		dx, dy := t.CenterX-x, t.CenterY-y
		d := dx*dx + dy*dy
		if best < 0 || d < bestDist || (d == bestDist && i < best) {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}
