// Terrain assignment from coordinate noise.
// Hash noise depends only on (q, r), so a grid with the same bounds and cell
// size produces the same terrain on every run. Simplex noise is seeded.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/hive"
	"github.com/talgya/beehive/internal/mathx"
)

// NoiseSource yields a value in [0, 1) for an axial coordinate.
type NoiseSource interface {
	Noise01(q, r int) float32
}

// HashNoise is the seed-free coordinate hash.
type HashNoise struct{}

// Noise01 mixes the coordinates with fixed multiplicative constants and
// keeps the low 24 bits.
func (HashNoise) Noise01(q, r int) float32 {
	return pseudoNoise01(q, r)
}

func pseudoNoise01(q, r int) float32 {
	h := uint32(int32(q))*73856093 ^ uint32(int32(r))*19349663
	h ^= h >> 13
	h *= 0x5bd1e995
	h ^= h >> 15
	return float32(h&0xFFFFFF) / float32(0x1000000)
}

// SimplexNoise samples multi-octave OpenSimplex noise over the hex plane.
type SimplexNoise struct {
	noise opensimplex.Noise
}

// NewSimplexNoise creates a simplex source from seed.
func NewSimplexNoise(seed int64) SimplexNoise {
	return SimplexNoise{noise: opensimplex.NewNormalized(seed)}
}

// Noise01 converts the hex to continuous space and layers three octaves.
func (s SimplexNoise) Noise01(q, r int) float32 {
	// Hex axial to cartesian: x = q + r*0.5, y = r * sqrt(3)/2
	x := float64(q) + float64(r)*0.5
	y := float64(r) * sqrt3 / 2.0
	v := octaveNoise(s.noise, x, y, 3, 0.18, 0.5)
	// Normalized output reaches 1.0 at the extreme; keep the range half-open.
	return float32(mathx.Clamp(v, 0, math.Nextafter(1, 0)))
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// NoiseFor picks the noise source named by the hex parameters.
func NoiseFor(p *config.Params) NoiseSource {
	if p.Hex.TerrainNoise == config.NoiseSimplex {
		return NewSimplexNoise(int64(p.RNGSeed))
	}
	return HashNoise{}
}

// entranceZone describes the tiles that become Entrance terrain.
type entranceZone struct {
	x, y        float64
	horizontal  bool // entrance on the top or bottom side
	axialExtent float64
	radialLimit float64
}

// assignTerrain fills in terrain and nectar fields for a tile whose center
// is already set. The first matching rule wins.
func assignTerrain(t *Tile, w *World, h *hive.Hive, zone *entranceZone, noise NoiseSource) {
	t.Terrain = TerrainOpen
	t.NectarCapacity = 0
	t.NectarStock = 0
	t.NectarRechargeRate = 0
	t.FlowCapacity = FlowCapacity(TerrainOpen)
	t.Flags = FlagVisible

	if h.Enabled() {
		if h.ContainsPoint(t.CenterX, t.CenterY) {
			t.Terrain = TerrainHive
			t.FlowCapacity = FlowCapacity(TerrainHive)
			return
		}
		dx := t.CenterX - zone.x
		dy := t.CenterY - zone.y
		along := math.Abs(dy)
		if zone.horizontal {
			along = math.Abs(dx)
		}
		if along <= zone.axialExtent && math.Hypot(dx, dy) <= zone.radialLimit {
			t.Terrain = TerrainEntrance
			t.FlowCapacity = FlowCapacity(TerrainEntrance)
			return
		}
	}

	lx := t.CenterX - w.OriginX
	ly := t.CenterY - w.OriginY
	dist := math.Hypot(lx, ly)
	n := noise.Noise01(int(t.Q), int(t.R))

	// Thresholds are float32 so the hash terrain matches bit for bit.
	if dist > w.CellSize*8 && n > float32(0.68) {
		fn := float64(n)
		t.Terrain = TerrainFlowers
		t.NectarCapacity = 240 + 60*fn
		t.NectarStock = t.NectarCapacity * mathx.Clamp(0.55+0.4*(fn-0.68), 0.35, 0.95)
		t.NectarRechargeRate = 4.5 + 2*(fn-0.68)
		t.FlowCapacity = FlowCapacity(TerrainFlowers)
		return
	}
	switch {
	case n < float32(0.04):
		t.Terrain = TerrainWater
		t.FlowCapacity = FlowCapacity(TerrainWater)
	case n < float32(0.08):
		t.Terrain = TerrainMountain
		t.FlowCapacity = FlowCapacity(TerrainMountain)
	case n < float32(0.18):
		t.Terrain = TerrainForest
		t.FlowCapacity = FlowCapacity(TerrainForest)
		t.NectarCapacity = 30
		t.NectarStock = t.NectarCapacity * 0.3
		t.NectarRechargeRate = 0.8
	}
}

func newEntranceZone(h *hive.Hive, cellSize float64) *entranceZone {
	if !h.Enabled() {
		return &entranceZone{}
	}
	p := h.EntrancePoint()
	half := h.EntranceWidth * 0.5
	axial := cellSize
	if h.EntranceWidth > 0 {
		axial = half
	}
	return &entranceZone{
		x:           p.X(),
		y:           p.Y(),
		horizontal:  h.Side == config.SideTop || h.Side == config.SideBottom,
		axialExtent: axial,
		radialLimit: math.Max(cellSize*1.2, half),
	}
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(w *World) map[Terrain]int {
	counts := make(map[Terrain]int)
	for i := range w.Tiles {
		counts[w.Tiles[i].Terrain]++
	}
	return counts
}
