// Package config holds the simulation parameters: defaults, validation,
// YAML loading, and the rules for deciding how a parameter change is applied.
package config

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpawnMode selects the distribution used for initial bee velocities.
type SpawnMode uint8

const (
	SpawnUniformDirection  SpawnMode = iota // Uniform heading, uniform speed in [min, max]
	SpawnGaussianDirection                  // Gaussian heading vector, Gaussian speed around the mean
)

var spawnModeNames = [...]string{"uniform_direction", "gaussian_direction"}

func (m SpawnMode) String() string {
	if int(m) < len(spawnModeNames) {
		return spawnModeNames[m]
	}
	return fmt.Sprintf("SpawnMode(%d)", uint8(m))
}

// MarshalYAML writes the mode by name.
func (m SpawnMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// UnmarshalYAML accepts either the mode name or its numeric value.
func (m *SpawnMode) UnmarshalYAML(node *yaml.Node) error {
	for i, name := range spawnModeNames {
		if strings.EqualFold(node.Value, name) {
			*m = SpawnMode(i)
			return nil
		}
	}
	var n int
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("motion spawn_mode %q: unknown mode", node.Value)
	}
	*m = SpawnMode(n)
	return nil
}

// Side names one side of the hive rectangle.
type Side uint8

const (
	SideTop Side = iota
	SideBottom
	SideLeft
	SideRight
)

var sideNames = [...]string{"top", "bottom", "left", "right"}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

func (s Side) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s *Side) UnmarshalYAML(node *yaml.Node) error {
	for i, name := range sideNames {
		if strings.EqualFold(node.Value, name) {
			*s = Side(i)
			return nil
		}
	}
	var n int
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("hive entrance_side %q: unknown side", node.Value)
	}
	*s = Side(n)
	return nil
}

// TerrainNoise selects the noise source for terrain assignment.
type TerrainNoise string

const (
	NoiseHash    TerrainNoise = "hash"    // Coordinate hash, seed-free, reproducible across runs
	NoiseSimplex TerrainNoise = "simplex" // OpenSimplex seeded from rng_seed
)

// Params is the complete simulation configuration.
type Params struct {
	WindowWidthPx  int        `yaml:"window_width_px"`
	WindowHeightPx int        `yaml:"window_height_px"`
	WindowTitle    string     `yaml:"window_title"`
	VSync          bool       `yaml:"vsync_on"`
	ClearColor     [4]float32 `yaml:"clear_color_rgba,flow"`
	BeeRadiusPx    float64    `yaml:"bee_radius_px"`
	BeeColor       [4]float32 `yaml:"bee_color_rgba,flow"`
	BeeCount       int        `yaml:"bee_count"`
	WorldWidthPx   float64    `yaml:"world_width_px"`
	WorldHeightPx  float64    `yaml:"world_height_px"`
	RNGSeed        uint64     `yaml:"rng_seed"`

	Sim    SimParams    `yaml:"sim"`
	Motion MotionParams `yaml:"motion"`
	Hive   HiveParams   `yaml:"hive"`
	Bee    BeeParams    `yaml:"bee"`
	Hex    HexParams    `yaml:"hex"`
}

// SimParams controls the fixed-step loop.
type SimParams struct {
	FixedDT         float64 `yaml:"fixed_dt"`
	MaxAccumulatorS float64 `yaml:"max_accumulator_s"` // Frame time beyond this is dropped
	ReportEveryS    float64 `yaml:"report_every_s"`
}

// MotionParams drives the undirected random-walk motion model.
type MotionParams struct {
	MinSpeed        float64   `yaml:"min_speed"`
	MaxSpeed        float64   `yaml:"max_speed"`
	JitterDegPerSec float64   `yaml:"jitter_deg_per_sec"`
	BounceMargin    float64   `yaml:"bounce_margin"`
	SpawnSpeedMean  float64   `yaml:"spawn_speed_mean"`
	SpawnSpeedStd   float64   `yaml:"spawn_speed_std"`
	SpawnMode       SpawnMode `yaml:"spawn_mode"`
}

// HiveParams describes the hive rectangle, its entrance, and wall response.
type HiveParams struct {
	RectX           float64 `yaml:"rect_x"`
	RectY           float64 `yaml:"rect_y"`
	RectW           float64 `yaml:"rect_w"`
	RectH           float64 `yaml:"rect_h"`
	EntranceSide    Side    `yaml:"entrance_side"`
	EntranceT       float64 `yaml:"entrance_t"`
	EntranceWidth   float64 `yaml:"entrance_width"`
	Restitution     float64 `yaml:"restitution"`
	TangentDamp     float64 `yaml:"tangent_damp"`
	MaxResolveIters int     `yaml:"max_resolve_iters"`
	SafetyMargin    float64 `yaml:"safety_margin"`
}

// Enabled reports whether the hive has a non-empty rectangle.
func (h HiveParams) Enabled() bool {
	return h.RectW > 0 && h.RectH > 0
}

// BeeParams holds the per-bee foraging economy.
type BeeParams struct {
	HarvestRateUlps  float64 `yaml:"harvest_rate_uLps"`
	CapacityUl       float64 `yaml:"capacity_uL"`
	UnloadRateUlps   float64 `yaml:"unload_rate_uLps"`
	RestRecoveryPerS float64 `yaml:"rest_recovery_per_s"`
	SpeedMps         float64 `yaml:"speed_mps"`
	SeekAccel        float64 `yaml:"seek_accel"`
	ArriveTolWorld   float64 `yaml:"arrive_tol_world"`
	EnergyDrainPerS  float64 `yaml:"energy_drain_per_s"`
	DepartEnergy     float64 `yaml:"depart_energy"` // Idle foragers leave once rested to this level
	ReturnEnergy     float64 `yaml:"return_energy"` // Below this a forager heads home regardless of load
}

// HexParams describes the axial hex world.
type HexParams struct {
	Enabled      bool         `yaml:"enabled"`
	DrawOnTop    bool         `yaml:"draw_on_top"`
	ShowGrid     bool         `yaml:"show_grid"`
	CellSize     float64      `yaml:"cell_size"`
	OriginX      float64      `yaml:"origin_x"`
	OriginY      float64      `yaml:"origin_y"`
	QMin         int          `yaml:"q_min"`
	QMax         int          `yaml:"q_max"`
	RMin         int          `yaml:"r_min"`
	RMax         int          `yaml:"r_max"`
	TerrainNoise TerrainNoise `yaml:"terrain_noise"`
}

// Defaults returns the baseline parameter set.
func Defaults() Params {
	p := Params{
		WindowWidthPx:  1280,
		WindowHeightPx: 720,
		WindowTitle:    "Bee Simulation",
		VSync:          true,
		ClearColor:     [4]float32{0.98, 0.98, 0.96, 1.0},
		BeeRadiusPx:    12,
		BeeColor:       [4]float32{0.10, 0.10, 0.10, 1.0},
		BeeCount:       256,
		RNGSeed:        0xBEE,
		Sim: SimParams{
			FixedDT:         1.0 / 120.0,
			MaxAccumulatorS: 0.25,
			ReportEveryS:    10,
		},
		Motion: MotionParams{
			MinSpeed:        10,
			MaxSpeed:        80,
			JitterDegPerSec: 15,
			BounceMargin:    0,
			SpawnSpeedMean:  40,
			SpawnSpeedStd:   10,
			SpawnMode:       SpawnUniformDirection,
		},
		Hive: HiveParams{
			RectX:           200,
			RectY:           200,
			RectW:           400,
			RectH:           260,
			EntranceSide:    SideBottom,
			EntranceT:       0.5,
			EntranceWidth:   120,
			Restitution:     0.8,
			TangentDamp:     0.9,
			MaxResolveIters: 2,
			SafetyMargin:    0.5,
		},
		Bee: BeeParams{
			HarvestRateUlps:  18,
			CapacityUl:       45,
			UnloadRateUlps:   160,
			RestRecoveryPerS: 0.35,
			SpeedMps:         60,
			SeekAccel:        220,
			EnergyDrainPerS:  0.02,
			DepartEnergy:     0.8,
			ReturnEnergy:     0.2,
		},
		Hex: HexParams{
			Enabled:      true,
			ShowGrid:     true,
			CellSize:     48,
			TerrainNoise: NoiseHash,
		},
	}
	p.WorldWidthPx = float64(p.WindowWidthPx)
	p.WorldHeightPx = float64(p.WindowHeightPx)
	p.Bee.ArriveTolWorld = p.BeeRadiusPx * 2
	p.FitHexToWorld()
	return p
}

// FitHexToWorld centers the hex grid on the world and sizes its axial
// bounds to cover it with a two-cell border.
func (p *Params) FitHexToWorld() {
	worldW, worldH := p.WorldWidthPx, p.WorldHeightPx
	if worldW <= 0 {
		worldW = float64(p.WindowWidthPx)
	}
	if worldH <= 0 {
		worldH = float64(p.WindowHeightPx)
	}
	p.Hex.OriginX = worldW * 0.5
	p.Hex.OriginY = worldH * 0.5

	colSpacing := math.Sqrt(3) * p.Hex.CellSize
	rowSpacing := 1.5 * p.Hex.CellSize
	if colSpacing <= 0 {
		colSpacing = 1
	}
	if rowSpacing <= 0 {
		rowSpacing = 1
	}
	qExtent := max(int(math.Ceil(worldW*0.5/colSpacing))+2, 1)
	rExtent := max(int(math.Ceil(worldH*0.5/rowSpacing))+2, 1)
	p.Hex.QMin, p.Hex.QMax = -qExtent, qExtent
	p.Hex.RMin, p.Hex.RMax = -rExtent, rExtent
}
