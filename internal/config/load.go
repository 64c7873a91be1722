package config

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML parameter file over the defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (Params, error) {
	p := Defaults()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	return Parse(raw)
}

// Parse decodes YAML bytes over the defaults and validates the result.
// When the file changes the world size without pinning the hex grid,
// the grid is refitted to the new world.
func Parse(raw []byte) (Params, error) {
	p := Defaults()
	pinned, err := hexPinned(raw)
	if err != nil {
		return p, fmt.Errorf("params.yaml: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return p, fmt.Errorf("params.yaml: %w", err)
	}
	if !pinned {
		p.FitHexToWorld()
	}
	if p.Hex.TerrainNoise == "" {
		p.Hex.TerrainNoise = NoiseHash
	}
	if err := Validate(&p); err != nil {
		return p, fmt.Errorf("params.yaml: %w", err)
	}
	return p, nil
}

// Merge decodes YAML bytes over base and validates the result. Fields the
// document omits keep their base values; on error base is returned.
// A world size change refits the hex grid unless the document pins it.
func Merge(base Params, raw []byte) (Params, error) {
	p := base
	pinned, err := hexPinned(raw)
	if err != nil {
		return base, fmt.Errorf("params: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return base, fmt.Errorf("params: %w", err)
	}
	resized := differs(base.WorldWidthPx, p.WorldWidthPx) || differs(base.WorldHeightPx, p.WorldHeightPx)
	if resized && !pinned {
		p.FitHexToWorld()
	}
	if err := Validate(&p); err != nil {
		return base, err
	}
	return p, nil
}

// hexPinned reports whether the document sets the hex axial bounds itself.
func hexPinned(raw []byte) (bool, error) {
	var probe struct {
		Hex map[string]any `yaml:"hex"`
	}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return false, err
	}
	_, pinned := probe.Hex["q_min"]
	return pinned, nil
}

// Dump writes p as YAML.
func Dump(w io.Writer, p Params) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

const eps = 0.0001

func differs(a, b float64) bool {
	return math.Abs(a-b) > eps
}

// RequiresReinit reports whether moving from old to next needs a full
// world and population rebuild rather than an in-place update.
func RequiresReinit(old, next *Params) bool {
	return old.BeeCount != next.BeeCount ||
		differs(old.WorldWidthPx, next.WorldWidthPx) ||
		differs(old.WorldHeightPx, next.WorldHeightPx)
}

// hexGeometry drops the render-only flags.
func hexGeometry(h HexParams) HexParams {
	h.ShowGrid, h.DrawOnTop = false, false
	return h
}

// hiveGeometry drops the collision response knobs.
func hiveGeometry(h HiveParams) HiveParams {
	h.Restitution, h.TangentDamp, h.MaxResolveIters, h.SafetyMargin = 0, 0, 0, 0
	return h
}

// WorldChanged reports whether the hex world must be regenerated: a change
// to the hex grid or to the hive rectangle and entrance that terrain
// assignment depends on. Render flags and collision knobs apply in place.
func WorldChanged(old, next *Params) bool {
	if hexGeometry(old.Hex) != hexGeometry(next.Hex) || hiveGeometry(old.Hive) != hiveGeometry(next.Hive) {
		return true
	}
	// Simplex terrain is seeded; hash terrain ignores the seed.
	return next.Hex.TerrainNoise == NoiseSimplex && old.RNGSeed != next.RNGSeed
}

// Dirty reports whether any runtime-tunable value differs between the two
// parameter sets.
func Dirty(old, next *Params) bool {
	if RequiresReinit(old, next) || WorldChanged(old, next) {
		return true
	}
	return old.Motion != next.Motion || old.Bee != next.Bee || old.Sim != next.Sim ||
		old.Hex != next.Hex || old.Hive != next.Hive || old.RNGSeed != next.RNGSeed ||
		old.BeeRadiusPx != next.BeeRadiusPx || old.BeeColor != next.BeeColor ||
		old.ClearColor != next.ClearColor
}
