package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid params")

// MaxBeeCount bounds the population a single run may allocate.
const MaxBeeCount = 1_000_000

// MaxHexSpan is the largest tile count along either axial axis.
const MaxHexSpan = 65535

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks every invariant the simulation core relies on.
// The first violation is returned; a nil error means p is safe to apply.
func Validate(p *Params) error {
	if p == nil {
		return invalid("params are nil")
	}

	b := p.Bee
	if b.HarvestRateUlps <= 0 {
		return invalid("bee harvest_rate_uLps (%.2f) must be > 0", b.HarvestRateUlps)
	}
	if b.CapacityUl <= 0 {
		return invalid("bee capacity_uL (%.2f) must be > 0", b.CapacityUl)
	}
	if b.UnloadRateUlps <= 0 {
		return invalid("bee unload_rate_uLps (%.2f) must be > 0", b.UnloadRateUlps)
	}
	if b.RestRecoveryPerS <= 0 {
		return invalid("bee rest_recovery_per_s (%.2f) must be > 0", b.RestRecoveryPerS)
	}
	if b.SpeedMps <= 0 {
		return invalid("bee speed_mps (%.2f) must be > 0", b.SpeedMps)
	}
	if b.SeekAccel <= 0 {
		return invalid("bee seek_accel (%.2f) must be > 0", b.SeekAccel)
	}
	if b.ArriveTolWorld <= 0 {
		return invalid("bee arrive_tol_world (%.2f) must be > 0", b.ArriveTolWorld)
	}

	if err := validateHex(&p.Hex); err != nil {
		return err
	}

	if p.WindowWidthPx < 320 {
		return invalid("window_width_px (%d) must be >= 320", p.WindowWidthPx)
	}
	if p.WindowHeightPx < 240 {
		return invalid("window_height_px (%d) must be >= 240", p.WindowHeightPx)
	}
	if p.WindowTitle == "" {
		return invalid("window_title must not be empty")
	}
	if p.BeeRadiusPx <= 0 || p.BeeRadiusPx > 256 {
		return invalid("bee_radius_px (%f) must be within (0, 256]", p.BeeRadiusPx)
	}
	if p.BeeCount <= 0 || p.BeeCount > MaxBeeCount {
		return invalid("bee_count (%d) must be within [1, %d]", p.BeeCount, MaxBeeCount)
	}
	if p.WorldWidthPx <= 0 || p.WorldHeightPx <= 0 {
		return invalid("world dimensions must be positive (got %f x %f)", p.WorldWidthPx, p.WorldHeightPx)
	}
	if p.Sim.FixedDT <= 0 {
		return invalid("sim fixed_dt (%f) must be > 0", p.Sim.FixedDT)
	}

	m := p.Motion
	if m.MinSpeed <= 0 {
		return invalid("motion min_speed (%f) must be > 0", m.MinSpeed)
	}
	if m.SpawnSpeedMean <= 0 {
		return invalid("motion spawn_speed_mean (%f) must be > 0", m.SpawnSpeedMean)
	}
	if m.MaxSpeed < m.MinSpeed {
		return invalid("motion max_speed (%f) must be >= min_speed (%f)", m.MaxSpeed, m.MinSpeed)
	}
	if m.JitterDegPerSec < 0 {
		return invalid("motion jitter_deg_per_sec (%f) must be >= 0", m.JitterDegPerSec)
	}
	if m.BounceMargin < 0 {
		return invalid("motion bounce_margin (%f) must be >= 0", m.BounceMargin)
	}
	if m.SpawnMode != SpawnUniformDirection && m.SpawnMode != SpawnGaussianDirection {
		return invalid("motion spawn_mode (%d) must be %d or %d",
			m.SpawnMode, SpawnUniformDirection, SpawnGaussianDirection)
	}
	if m.SpawnSpeedStd < 0 {
		return invalid("motion spawn_speed_std (%f) must be >= 0", m.SpawnSpeedStd)
	}

	for i, c := range p.ClearColor {
		if c < 0 || c > 1 {
			return invalid("clear_color_rgba[%d] (%f) must be within [0, 1]", i, c)
		}
	}
	for i, c := range p.BeeColor {
		if c < 0 || c > 1 {
			return invalid("bee_color_rgba[%d] (%f) must be within [0, 1]", i, c)
		}
	}

	if err := validateHive(&p.Hive, p.BeeRadiusPx); err != nil {
		return err
	}

	if b.EnergyDrainPerS <= 0 {
		return invalid("bee energy_drain_per_s (%.3f) must be > 0", b.EnergyDrainPerS)
	}
	if b.DepartEnergy <= 0 || b.DepartEnergy > 1 {
		return invalid("bee depart_energy (%.2f) must be within (0, 1]", b.DepartEnergy)
	}
	if b.ReturnEnergy < 0 || b.ReturnEnergy >= b.DepartEnergy {
		return invalid("bee return_energy (%.2f) must be within [0, depart_energy)", b.ReturnEnergy)
	}
	if p.Sim.MaxAccumulatorS < p.Sim.FixedDT {
		return invalid("sim max_accumulator_s (%f) must be >= fixed_dt (%f)", p.Sim.MaxAccumulatorS, p.Sim.FixedDT)
	}
	if p.Sim.ReportEveryS < 0 {
		return invalid("sim report_every_s (%f) must be >= 0", p.Sim.ReportEveryS)
	}
	return nil
}

func validateHex(h *HexParams) error {
	if !h.Enabled {
		return nil
	}
	if h.CellSize <= 0 {
		return invalid("hex cell_size (%.2f) must be > 0", h.CellSize)
	}
	if h.QMin > h.QMax {
		return invalid("hex q_min (%d) must be <= q_max (%d)", h.QMin, h.QMax)
	}
	if h.RMin > h.RMax {
		return invalid("hex r_min (%d) must be <= r_max (%d)", h.RMin, h.RMax)
	}
	if h.QMin < math.MinInt16 || h.QMax > math.MaxInt16 ||
		h.RMin < math.MinInt16 || h.RMax > math.MaxInt16 {
		return invalid("hex axial bounds must fit within int16 range")
	}
	qSpan := h.QMax - h.QMin + 1
	rSpan := h.RMax - h.RMin + 1
	if qSpan <= 0 || rSpan <= 0 {
		return invalid("hex spans must be positive")
	}
	if qSpan > MaxHexSpan || rSpan > MaxHexSpan {
		return invalid("hex spans (%d x %d) exceed supported limits (<= %d)", qSpan, rSpan, MaxHexSpan)
	}
	switch h.TerrainNoise {
	case NoiseHash, NoiseSimplex, "":
	default:
		return invalid("hex terrain_noise (%q) must be %q or %q", h.TerrainNoise, NoiseHash, NoiseSimplex)
	}
	return nil
}

func validateHive(h *HiveParams, beeRadius float64) error {
	if h.RectW < 0 || h.RectH < 0 {
		return invalid("hive dimensions must be non-negative (got %.2f x %.2f)", h.RectW, h.RectH)
	}
	if !h.Enabled() {
		return nil
	}
	if h.EntranceSide > SideRight {
		return invalid("hive entrance_side (%d) must be 0-3", h.EntranceSide)
	}
	if h.EntranceT < 0 || h.EntranceT > 1 {
		return invalid("hive entrance_t (%.2f) must be within [0, 1]", h.EntranceT)
	}
	if h.EntranceWidth <= 0 {
		return invalid("hive entrance_width (%.2f) must be > 0", h.EntranceWidth)
	}
	sideLength := h.RectW
	if h.EntranceSide == SideLeft || h.EntranceSide == SideRight {
		sideLength = h.RectH
	}
	if h.EntranceWidth > sideLength-2*beeRadius {
		return invalid("hive entrance_width (%.2f) must be <= side length minus 2*bee_radius (%.2f)",
			h.EntranceWidth, sideLength-2*beeRadius)
	}
	if h.Restitution < 0 || h.Restitution > 1 {
		return invalid("hive restitution (%.2f) must be within [0, 1]", h.Restitution)
	}
	if h.TangentDamp < 0 || h.TangentDamp > 1 {
		return invalid("hive tangent_damp (%.2f) must be within [0, 1]", h.TangentDamp)
	}
	if h.MaxResolveIters < 0 || h.MaxResolveIters > 8 {
		return invalid("hive max_resolve_iters (%d) must be within [0, 8]", h.MaxResolveIters)
	}
	if h.SafetyMargin < 0 || h.SafetyMargin > 5 {
		return invalid("hive safety_margin (%.2f) must be within [0, 5]", h.SafetyMargin)
	}
	return nil
}
