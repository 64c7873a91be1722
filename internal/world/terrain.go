package world

import "fmt"

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainOpen     Terrain = iota // Grassland, low flow
	TerrainForest                  // Small nectar pool
	TerrainMountain                // Barely passable for nectar
	TerrainWater                   // No nectar
	TerrainHive                    // Under the hive rectangle
	TerrainFlowers                 // Nectar patch
	TerrainEntrance                // Around the hive entrance
)

// TerrainCount is the number of terrain kinds.
const TerrainCount = 7

// AllTerrains lists every terrain kind in declaration order.
var AllTerrains = [TerrainCount]Terrain{
	TerrainOpen, TerrainForest, TerrainMountain, TerrainWater,
	TerrainHive, TerrainFlowers, TerrainEntrance,
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainOpen:
		return "Open"
	case TerrainForest:
		return "Forest"
	case TerrainMountain:
		return "Mountain"
	case TerrainWater:
		return "Water"
	case TerrainHive:
		return "Hive"
	case TerrainFlowers:
		return "Flowers"
	case TerrainEntrance:
		return "Entrance"
	default:
		return "Unknown"
	}
}

func (t Terrain) String() string { return TerrainName(t) }

// MarshalText encodes the terrain by name for JSON snapshots.
func (t Terrain) MarshalText() ([]byte, error) {
	return []byte(TerrainName(t)), nil
}

// UnmarshalText decodes a terrain name.
func (t *Terrain) UnmarshalText(text []byte) error {
	for _, v := range AllTerrains {
		if TerrainName(v) == string(text) {
			*t = v
			return nil
		}
	}
	return fmt.Errorf("unknown terrain %q", text)
}

// Palette returns the RGBA fill used to draw a terrain type.
func Palette(t Terrain) [4]float32 {
	switch t {
	case TerrainOpen:
		return [4]float32{0.80, 0.82, 0.85, 0.65}
	case TerrainForest:
		return [4]float32{0.25, 0.56, 0.32, 0.80}
	case TerrainMountain:
		return [4]float32{0.50, 0.40, 0.32, 0.80}
	case TerrainWater:
		return [4]float32{0.22, 0.45, 0.85, 0.75}
	case TerrainHive:
		return [4]float32{0.90, 0.74, 0.24, 0.90}
	case TerrainFlowers:
		return [4]float32{0.94, 0.54, 0.74, 0.85}
	case TerrainEntrance:
		return [4]float32{0.35, 0.90, 0.95, 0.85}
	default:
		return [4]float32{1, 1, 1, 1}
	}
}

// FlowCapacity is the extraction rate a tile of terrain t can sustain.
func FlowCapacity(t Terrain) float64 {
	switch t {
	case TerrainOpen:
		return 8
	case TerrainForest:
		return 6
	case TerrainMountain:
		return 1.5
	case TerrainWater:
		return 2
	case TerrainHive:
		return 35
	case TerrainFlowers:
		return 18
	case TerrainEntrance:
		return 26
	default:
		return 0
	}
}

// Tile flags.
const (
	FlagVisible uint8 = 1 << iota
)

// Tile is a single hex of the world.
// Only NectarStock changes once the world is built.
type Tile struct {
	Q       int16   `json:"q"`
	R       int16   `json:"r"`
	Terrain Terrain `json:"terrain"`

	NectarStock        float64 `json:"nectar_stock"`
	NectarCapacity     float64 `json:"nectar_capacity"`
	NectarRechargeRate float64 `json:"nectar_recharge_rate"` // units per second
	FlowCapacity       float64 `json:"flow_capacity"`        // max extraction per second

	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Flags   uint8   `json:"flags"`
}

// Coord returns the tile's axial coordinate.
func (t *Tile) Coord() HexCoord {
	return HexCoord{Q: int(t.Q), R: int(t.R)}
}

// Visible reports whether the tile carries the visibility flag.
func (t *Tile) Visible() bool {
	return t.Flags&FlagVisible != 0
}

// HasNectar reports whether the tile can ever hold nectar.
func (t *Tile) HasNectar() bool {
	return t.NectarCapacity > 0
}

// Fill returns stock as a fraction of capacity.
func (t *Tile) Fill() float64 {
	if t.NectarCapacity <= 0 {
		return 0
	}
	return t.NectarStock / t.NectarCapacity
}
