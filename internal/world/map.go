package world

import (
	"errors"
	"fmt"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/hive"
)

// MaxTiles caps the number of tiles one world may allocate.
const MaxTiles = 1 << 24

var (
	// ErrBounds reports axial bounds that cannot form a grid.
	ErrBounds = errors.New("world: invalid axial bounds")
	// ErrAllocation reports a grid too large to allocate.
	ErrAllocation = errors.New("world: tile allocation failed")
)

// World holds a rectangular axial range of tiles in row-major order.
// A world built with the hex grid disabled is empty.
type World struct {
	Layout
	QMin   int `json:"q_min"`
	QMax   int `json:"q_max"`
	RMin   int `json:"r_min"`
	RMax   int `json:"r_max"`
	Width  int `json:"width"`
	Height int `json:"height"`

	Tiles []Tile `json:"-"`

	resources []int // indices of tiles that can hold nectar, ascending
}

// New creates the world described by p, assigning terrain to every tile.
func New(p *config.Params) (*World, error) {
	w := &World{}
	if p == nil || !p.Hex.Enabled {
		return w, nil
	}
	h := p.Hex
	qSpan := h.QMax - h.QMin + 1
	rSpan := h.RMax - h.RMin + 1
	if qSpan <= 0 || rSpan <= 0 {
		return nil, fmt.Errorf("%w: (%d..%d, %d..%d)", ErrBounds, h.QMin, h.QMax, h.RMin, h.RMax)
	}
	if qSpan > config.MaxHexSpan || rSpan > config.MaxHexSpan {
		return nil, fmt.Errorf("%w: spans %d x %d exceed %d", ErrBounds, qSpan, rSpan, config.MaxHexSpan)
	}
	count := qSpan * rSpan
	if count > MaxTiles {
		return nil, fmt.Errorf("%w: %d tiles exceeds %d", ErrAllocation, count, MaxTiles)
	}

	w.Layout = Layout{CellSize: h.CellSize, OriginX: h.OriginX, OriginY: h.OriginY}
	w.QMin, w.QMax = h.QMin, h.QMax
	w.RMin, w.RMax = h.RMin, h.RMax
	w.Width, w.Height = qSpan, rSpan
	w.Tiles = make([]Tile, count)

	hv := hive.New(p.Hive)
	zone := newEntranceZone(&hv, w.CellSize)
	noise := NoiseFor(p)

	i := 0
	for r := h.RMin; r <= h.RMax; r++ {
		for q := h.QMin; q <= h.QMax; q++ {
			t := &w.Tiles[i]
			t.Q, t.R = int16(q), int16(r)
			t.CenterX, t.CenterY = w.AxialToWorld(q, r)
			assignTerrain(t, w, &hv, zone, noise)
			if t.HasNectar() {
				w.resources = append(w.resources, i)
			}
			i++
		}
	}
	return w, nil
}

// Count returns the number of tiles.
func (w *World) Count() int {
	return len(w.Tiles)
}

// Empty reports whether the world holds no tiles.
func (w *World) Empty() bool {
	return w == nil || len(w.Tiles) == 0
}

// InBounds returns true if (q, r) lies within the axial range.
func (w *World) InBounds(q, r int) bool {
	if w.Empty() {
		return false
	}
	return q >= w.QMin && q <= w.QMax && r >= w.RMin && r <= w.RMax
}

// Index returns the flat index of (q, r).
func (w *World) Index(q, r int) (int, bool) {
	if !w.InBounds(q, r) {
		return 0, false
	}
	return (r-w.RMin)*w.Width + (q - w.QMin), true
}

// Get returns the tile at (q, r), or nil if out of bounds.
func (w *World) Get(q, r int) *Tile {
	i, ok := w.Index(q, r)
	if !ok {
		return nil
	}
	return &w.Tiles[i]
}

// At returns the tile at flat index i, or nil if out of range.
func (w *World) At(i int) *Tile {
	if w == nil || i < 0 || i >= len(w.Tiles) {
		return nil
	}
	return &w.Tiles[i]
}

// Pick resolves a world point to the tile beneath it.
func (w *World) Pick(x, y float64) (HexCoord, int, bool) {
	if w.Empty() {
		return HexCoord{}, 0, false
	}
	c := AxialRound(w.WorldToAxial(x, y))
	i, ok := w.Index(c.Q, c.R)
	if !ok {
		return HexCoord{}, 0, false
	}
	return c, i, true
}

// ResourceTiles returns the indices of tiles that can hold nectar, in
// ascending order. The slice is shared and must not be modified.
func (w *World) ResourceTiles() []int {
	if w == nil {
		return nil
	}
	return w.resources
}

// TotalNectar sums the stock of every tile.
func (w *World) TotalNectar() float64 {
	total := 0.0
	for _, i := range w.ResourceTiles() {
		total += w.Tiles[i].NectarStock
	}
	return total
}

// String returns a summary of the world.
func (w *World) String() string {
	return fmt.Sprintf("World(q=%d..%d, r=%d..%d, tiles=%d, resources=%d)",
		w.QMin, w.QMax, w.RMin, w.RMax, w.Count(), len(w.resources))
}
