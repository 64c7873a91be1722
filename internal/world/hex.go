// Package world provides the hex grid, terrain, and nectar-bearing tiles.
// Uses pointy-top axial coordinates (q, r) for the hex grid.
package world

import "math"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	return max(dq, dr, ds)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

const sqrt3 = 1.7320508075688772

// Layout maps between axial and world coordinates for a pointy-top grid.
type Layout struct {
	CellSize float64 `json:"cell_size"`
	OriginX  float64 `json:"origin_x"`
	OriginY  float64 `json:"origin_y"`
}

// AxialToWorld returns the world-space center of hex (q, r).
func (l Layout) AxialToWorld(q, r int) (x, y float64) {
	fq, fr := float64(q), float64(r)
	x = l.CellSize*sqrt3*(fq+fr*0.5) + l.OriginX
	y = l.CellSize*1.5*fr + l.OriginY
	return x, y
}

// WorldToAxial returns the fractional axial coordinates under a world point.
func (l Layout) WorldToAxial(x, y float64) (qf, rf float64) {
	if l.CellSize <= 0 {
		return 0, 0
	}
	px := x - l.OriginX
	py := y - l.OriginY
	qf = (sqrt3/3*px - py/3) / l.CellSize
	rf = (2.0 / 3.0 * py) / l.CellSize
	return qf, rf
}

// AxialRound rounds fractional axial coordinates to the nearest hex.
// The component with the largest rounding error is rebuilt from the
// other two so that q + r + s stays zero.
func AxialRound(qf, rf float64) HexCoord {
	sf := -qf - rf
	q := math.RoundToEven(qf)
	r := math.RoundToEven(rf)
	s := math.RoundToEven(sf)

	qDiff := math.Abs(q - qf)
	rDiff := math.Abs(r - rf)
	sDiff := math.Abs(s - sf)

	if qDiff > rDiff && qDiff > sDiff {
		q = -r - s
	} else if rDiff > sDiff {
		r = -q - s
	}
	return HexCoord{Q: int(q), R: int(r)}
}

// CornerOffset returns the offset of corner i (0-5) from a hex center.
// Corners start at -30 degrees and advance by 60.
func CornerOffset(cellSize float64, i int) (dx, dy float64) {
	angle := (60*float64(i) - 30) * math.Pi / 180
	return cellSize * math.Cos(angle), cellSize * math.Sin(angle)
}
