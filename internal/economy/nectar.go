// Package economy provides the nectar economy: tile recharge, flow-limited
// extraction, and the colony's stored reserve.
package economy

import (
	"github.com/talgya/beehive/internal/world"
)

// Ledger apportions nectar extraction within one tick. Each tile yields at
// most flow_capacity*dt per tick in total, however many bees draw on it,
// and never more than its stock. Requests are served in call order, so
// callers that visit bees by index get a deterministic split.
type Ledger struct {
	dt      float64
	drawn   []float64
	touched []int
}

// NewLedger creates a ledger for a world of n tiles.
func NewLedger(n int) *Ledger {
	return &Ledger{drawn: make([]float64, n)}
}

// Begin opens a new tick of length dt, clearing the previous tick's draws.
func (l *Ledger) Begin(dt float64) {
	for _, i := range l.touched {
		l.drawn[i] = 0
	}
	l.touched = l.touched[:0]
	l.dt = dt
}

// Resize adapts the ledger to a rebuilt world of n tiles.
func (l *Ledger) Resize(n int) {
	l.drawn = make([]float64, n)
	l.touched = l.touched[:0]
}

// Extract removes up to want units from tile idx and returns what was granted.
func (l *Ledger) Extract(w *world.World, idx int, want float64) float64 {
	t := w.At(idx)
	if t == nil || want <= 0 || idx >= len(l.drawn) {
		return 0
	}
	allowance := t.FlowCapacity*l.dt - l.drawn[idx]
	got := min(want, allowance, t.NectarStock)
	if got <= 0 {
		return 0
	}
	t.NectarStock -= got
	if t.NectarStock < 0 {
		t.NectarStock = 0
	}
	if l.drawn[idx] == 0 {
		l.touched = append(l.touched, idx)
	}
	l.drawn[idx] += got
	return got
}

// Drawn returns the amount taken from tile idx during the current tick.
func (l *Ledger) Drawn(idx int) float64 {
	if idx < 0 || idx >= len(l.drawn) {
		return 0
	}
	return l.drawn[idx]
}

// Recharge refills every nectar-bearing tile by its recharge rate, capped at
// capacity. It runs each tick whether or not the tile is being harvested.
func Recharge(w *world.World, dt float64) {
	for _, i := range w.ResourceTiles() {
		t := &w.Tiles[i]
		t.NectarStock = min(t.NectarCapacity, t.NectarStock+t.NectarRechargeRate*dt)
	}
}

// HarvestRequest is what a bee asks of a tile in one tick:
// min(harvest rate, flow capacity, stock) * dt, limited to the room left
// in its crop.
func HarvestRequest(t *world.Tile, harvestRate, room, dt float64) float64 {
	if t == nil || room <= 0 {
		return 0
	}
	return min(min(harvestRate, t.FlowCapacity, t.NectarStock)*dt, room)
}
