package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/beehive/internal/config"
)

func smallParams() config.Params {
	p := config.Defaults()
	p.Hex.QMin, p.Hex.QMax = -2, 2
	p.Hex.RMin, p.Hex.RMax = -2, 2
	p.Hex.CellSize = 48
	return p
}

func TestNewSmallWorld(t *testing.T) {
	p := smallParams()
	w, err := New(&p)
	require.NoError(t, err)

	assert.Equal(t, 25, w.Count())
	assert.Equal(t, 5, w.Width)
	assert.Equal(t, 5, w.Height)

	tile := w.Get(0, 0)
	require.NotNil(t, tile)
	assert.Equal(t, p.Hex.OriginX, tile.CenterX)
	assert.Equal(t, p.Hex.OriginY, tile.CenterY)
}

func TestIndexIsRowMajor(t *testing.T) {
	p := smallParams()
	w, err := New(&p)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for r := w.RMin; r <= w.RMax; r++ {
		for q := w.QMin; q <= w.QMax; q++ {
			i, ok := w.Index(q, r)
			require.True(t, ok)
			assert.Equal(t, (r-w.RMin)*w.Width+(q-w.QMin), i)
			assert.False(t, seen[i])
			seen[i] = true
			assert.Equal(t, HexCoord{Q: q, R: r}, w.Tiles[i].Coord())
		}
	}
	assert.Len(t, seen, w.Count())

	_, ok := w.Index(3, 0)
	assert.False(t, ok)
	assert.Nil(t, w.Get(0, -3))
	assert.Nil(t, w.At(-1))
	assert.Nil(t, w.At(w.Count()))
}

func TestPickRoundTrip(t *testing.T) {
	p := config.Defaults()
	w, err := New(&p)
	require.NoError(t, err)
	require.Equal(t, 315, w.Count())

	for i := range w.Tiles {
		tile := &w.Tiles[i]
		x, y := w.AxialToWorld(int(tile.Q), int(tile.R))
		c, idx, ok := w.Pick(x, y)
		require.True(t, ok)
		assert.Equal(t, tile.Coord(), c)
		assert.Equal(t, i, idx)
	}

	_, _, ok := w.Pick(-10000, -10000)
	assert.False(t, ok)
}

func TestPickNearCenter(t *testing.T) {
	p := smallParams()
	w, err := New(&p)
	require.NoError(t, err)

	x, y := w.AxialToWorld(1, -1)
	c, _, ok := w.Pick(x+w.CellSize*0.4, y-w.CellSize*0.3)
	require.True(t, ok)
	assert.Equal(t, HexCoord{Q: 1, R: -1}, c)
}

func TestAxialRound(t *testing.T) {
	examples := []struct {
		Name   string
		QF, RF float64
		Want   HexCoord
	}{
		{"integer", 2, -1, HexCoord{Q: 2, R: -1}},
		{"near q", 0.9, 0.05, HexCoord{Q: 1, R: 0}},
		{"rebuild q", 0.6, 0.2, HexCoord{Q: 1, R: 0}},
		{"rebuild r", 0.3, 0.45, HexCoord{Q: 0, R: 1}},
		{"tie", 0.45, 0.45, HexCoord{Q: 0, R: 1}},
		{"negative", -1.1, -0.95, HexCoord{Q: -1, R: -1}},
	}
	for _, example := range examples {
		t.Run(example.Name, func(t *testing.T) {
			got := AxialRound(example.QF, example.RF)
			assert.Equal(t, example.Want, got)
			assert.Zero(t, got.Q+got.R+got.S())
		})
	}
}

func TestHashNoiseConstants(t *testing.T) {
	examples := []struct {
		Q, R int
		Bits uint32
	}{
		{0, 0, 0},
		{1, 0, 7712859},
		{0, 1, 10117949},
		{-1, 2, 2763872},
		{3, -4, 3998131},
	}
	for _, example := range examples {
		want := float32(example.Bits) / float32(1<<24)
		assert.Equal(t, want, HashNoise{}.Noise01(example.Q, example.R), "(%d,%d)", example.Q, example.R)
	}
}

func TestTerrainDistribution(t *testing.T) {
	p := config.Defaults()
	w, err := New(&p)
	require.NoError(t, err)

	counts := TerrainCounts(w)
	assert.Equal(t, map[Terrain]int{
		TerrainOpen:     177,
		TerrainForest:   31,
		TerrainMountain: 15,
		TerrainWater:    7,
		TerrainHive:     20,
		TerrainFlowers:  64,
		TerrainEntrance: 1,
	}, counts)

	for i := range w.Tiles {
		tile := &w.Tiles[i]
		assert.True(t, tile.Visible())
		assert.Equal(t, FlowCapacity(tile.Terrain), tile.FlowCapacity)
		assert.GreaterOrEqual(t, tile.NectarStock, 0.0)
		assert.LessOrEqual(t, tile.NectarStock, tile.NectarCapacity)
		if tile.Terrain == TerrainFlowers {
			assert.Greater(t, tile.NectarCapacity, 240.0)
			assert.Greater(t, tile.NectarRechargeRate, 4.5)
		}
	}
	assert.Len(t, w.ResourceTiles(), 64+31)
}

func TestTerrainIsDeterministic(t *testing.T) {
	p := config.Defaults()
	a, err := New(&p)
	require.NoError(t, err)

	p.RNGSeed = 12345
	b, err := New(&p)
	require.NoError(t, err)
	assert.Equal(t, a.Tiles, b.Tiles, "hash terrain ignores the seed")

	p.Hex.TerrainNoise = config.NoiseSimplex
	c, err := New(&p)
	require.NoError(t, err)
	d, err := New(&p)
	require.NoError(t, err)
	assert.Equal(t, c.Tiles, d.Tiles)
}

func TestHiveTerrain(t *testing.T) {
	p := config.Defaults()
	w, err := New(&p)
	require.NoError(t, err)

	for i := range w.Tiles {
		tile := &w.Tiles[i]
		inside := tile.CenterX >= 200 && tile.CenterX <= 600 && tile.CenterY >= 200 && tile.CenterY <= 460
		assert.Equal(t, inside, tile.Terrain == TerrainHive, "tile (%d,%d)", tile.Q, tile.R)
	}

	p.Hive.RectW = 0
	w, err = New(&p)
	require.NoError(t, err)
	assert.Zero(t, TerrainCounts(w)[TerrainHive])
	assert.Zero(t, TerrainCounts(w)[TerrainEntrance])
}

func TestNewErrors(t *testing.T) {
	p := smallParams()
	p.Hex.QMin, p.Hex.QMax = 5, 1
	_, err := New(&p)
	assert.ErrorIs(t, err, ErrBounds)

	p = smallParams()
	p.Hex.QMin, p.Hex.QMax = 0, 60000
	p.Hex.RMin, p.Hex.RMax = 0, 60000
	_, err = New(&p)
	assert.ErrorIs(t, err, ErrAllocation)

	p = smallParams()
	p.Hex.Enabled = false
	w, err := New(&p)
	require.NoError(t, err)
	assert.True(t, w.Empty())
	_, _, ok := w.Pick(p.Hex.OriginX, p.Hex.OriginY)
	assert.False(t, ok)
}

func TestPaletteAndCorners(t *testing.T) {
	assert.Equal(t, [4]float32{0.94, 0.54, 0.74, 0.85}, Palette(TerrainFlowers))
	for _, terrain := range AllTerrains {
		assert.NotEqual(t, "Unknown", TerrainName(terrain))
	}

	dx, dy := CornerOffset(10, 0)
	assert.InDelta(t, 8.660254, dx, 1e-6)
	assert.InDelta(t, -5, dy, 1e-9)
	dx, dy = CornerOffset(10, 2)
	assert.InDelta(t, 0, dx, 1e-9)
	assert.InDelta(t, 10, dy, 1e-9)
}

func TestTileJSON(t *testing.T) {
	in := Tile{Q: -1, R: 2, Terrain: TerrainFlowers, NectarStock: 12, NectarCapacity: 300}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"terrain":"Flowers"`)

	var out Tile
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	var bad Terrain
	assert.Error(t, bad.UnmarshalText([]byte("Swamp")))
}

func TestDistance(t *testing.T) {
	a := HexCoord{Q: 0, R: 0}
	for _, n := range a.Neighbors() {
		assert.Equal(t, 1, Distance(a, n))
	}
	assert.Equal(t, 3, Distance(a, HexCoord{Q: 2, R: -3}))
}
