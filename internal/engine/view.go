package engine

import (
	"math"

	"github.com/talgya/beehive/internal/agents"
	"github.com/talgya/beehive/internal/mathx"
	"github.com/talgya/beehive/internal/world"
)

// DebugLineColor is the packed color of the selected bee's path lines.
const DebugLineColor uint32 = 0xFF0000FF

// NoSelection is the selected index meaning no bee is selected.
const NoSelection = -1

// Mode tints applied over the configured bee color.
var modeColors = [agents.NumModes][4]float32{
	agents.ModeIdle:      {0, 0, 0, 0}, // configured bee color
	agents.ModeOutbound:  {0.95, 0.75, 0.10, 1},
	agents.ModeForaging:  {0.95, 0.45, 0.10, 1},
	agents.ModeReturning: {0.20, 0.55, 0.95, 1},
	agents.ModeEntering:  {0.35, 0.85, 0.95, 1},
	agents.ModeUnloading: {0.55, 0.30, 0.85, 1},
}

var queenColor = [4]float32{0.85, 0.15, 0.55, 1}

// Patch ring colors by fill.
var (
	ringFullColor     = [4]float32{0.55, 0.20, 0.45, 0.9}
	ringDepletedColor = [4]float32{0.85, 0.25, 0.25, 0.9}
)

// patchRadiusScale sizes a patch disc relative to the hex cell.
const patchRadiusScale = 0.45

// PatchView holds the flowers patches as flat arrays, one entry per patch.
type PatchView struct {
	Positions  []float32 `json:"positions_xy"`
	Radii      []float32 `json:"radii_px"`
	FillColors []uint32  `json:"fill_rgba"`
	RingRadii  []float32 `json:"ring_radii_px"`
	RingColors []uint32  `json:"ring_rgba"`
}

// DebugLine is one segment of the selected bee's path.
type DebugLine struct {
	X0    float32 `json:"x0"`
	Y0    float32 `json:"y0"`
	X1    float32 `json:"x1"`
	Y1    float32 `json:"y1"`
	Color uint32  `json:"rgba"`
}

// View is an immutable snapshot for renderers. Positions are interleaved
// x, y pairs; colors are packed 0xRRGGBBAA.
type View struct {
	Tick       uint64      `json:"tick"`
	Time       float64     `json:"time"`
	Positions  []float32   `json:"positions_xy"`
	Radii      []float32   `json:"radii_px"`
	Colors     []uint32    `json:"rgba"`
	Patches    PatchView   `json:"patches"`
	DebugLines []DebugLine `json:"debug_lines,omitempty"`
	Selected   int         `json:"selected"`
}

// BeeCount returns the number of bees in the view.
func (v *View) BeeCount() int {
	return len(v.Radii)
}

// BuildView snapshots the simulation without changing it. When selected is a
// valid bee index, its path is drawn as agent to waypoint to destination.
func (s *Simulation) BuildView(selected int) View {
	n := len(s.Bees)
	v := View{
		Tick:      s.LastTick,
		Time:      s.Time,
		Positions: make([]float32, 0, 2*n),
		Radii:     make([]float32, 0, n),
		Colors:    make([]uint32, 0, n),
		Selected:  NoSelection,
	}
	for i := range s.Bees {
		b := &s.Bees[i]
		v.Positions = append(v.Positions, float32(b.Pos.X()), float32(b.Pos.Y()))
		v.Radii = append(v.Radii, float32(b.Radius))
		v.Colors = append(v.Colors, mathx.PackRGBA(beeColor(b)))
	}
	v.Patches = s.patchView()

	if selected >= 0 && selected < n {
		v.Selected = selected
		v.DebugLines = pathLines(&s.Bees[selected])
	}
	return v
}

func beeColor(b *agents.Bee) [4]float32 {
	if b.IsQueen() {
		return queenColor
	}
	if b.Mode == agents.ModeIdle || int(b.Mode) >= len(modeColors) {
		return b.Color
	}
	return modeColors[b.Mode]
}

func (s *Simulation) patchView() PatchView {
	var pv PatchView
	cell := s.Params.Hex.CellSize
	for _, i := range s.World.ResourceTiles() {
		t := &s.World.Tiles[i]
		if t.Terrain != world.TerrainFlowers {
			continue
		}
		fill := mathx.Clamp(t.Fill(), 0, 1)
		ring := cell * patchRadiusScale
		fillColor := world.Palette(world.TerrainFlowers)
		fillColor[3] = float32(0.35 + 0.65*fill)
		ringColor := ringFullColor
		if t.NectarStock < agents.MinPatchStock {
			ringColor = ringDepletedColor
		}

		pv.Positions = append(pv.Positions, float32(t.CenterX), float32(t.CenterY))
		pv.Radii = append(pv.Radii, float32(ring*(0.25+0.75*fill)))
		pv.FillColors = append(pv.FillColors, mathx.PackRGBA(fillColor))
		pv.RingRadii = append(pv.RingRadii, float32(ring))
		pv.RingColors = append(pv.RingColors, mathx.PackRGBA(ringColor))
	}
	return pv
}

// pathLines returns the debug segments for a bee with a valid path. A
// waypoint that coincides with the destination is collapsed into one line.
func pathLines(b *agents.Bee) []DebugLine {
	if !b.Path.Valid {
		return nil
	}
	const eps = 1e-3
	final := b.Path.Final
	wp, hasWaypoint := b.Path.Waypoint()
	distinct := hasWaypoint &&
		(math.Abs(wp.X()-final.X()) > eps || math.Abs(wp.Y()-final.Y()) > eps)

	first := final
	if distinct {
		first = wp
	}
	lines := []DebugLine{{
		X0: float32(b.Pos.X()), Y0: float32(b.Pos.Y()),
		X1: float32(first.X()), Y1: float32(first.Y()),
		Color: DebugLineColor,
	}}
	if distinct {
		lines = append(lines, DebugLine{
			X0: float32(wp.X()), Y0: float32(wp.Y()),
			X1: float32(final.X()), Y1: float32(final.Y()),
			Color: DebugLineColor,
		})
	}
	return lines
}
