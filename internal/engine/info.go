package engine

import "github.com/talgya/beehive/internal/agents"

// BeeDebugInfo is a copy of one bee's state for inspection.
type BeeDebugInfo struct {
	Index       int           `json:"index"`
	Role        agents.Role   `json:"role"`
	Intent      agents.Intent `json:"intent"`
	Mode        agents.Mode   `json:"mode"`
	InsideHive  bool          `json:"inside_hive"`
	Energy      float64       `json:"energy"`
	Load        float64       `json:"load_uL"`
	Capacity    float64       `json:"capacity_uL"`
	HarvestRate float64       `json:"harvest_rate"`
	Speed       float64       `json:"speed"`
	AgeDays     float64       `json:"age_days"`
	PosX        float64       `json:"pos_x"`
	PosY        float64       `json:"pos_y"`
	TargetTile  int           `json:"target_tile"`
	Trips       int           `json:"trips"`

	PathValid       bool    `json:"path_valid"`
	PathHasWaypoint bool    `json:"path_has_waypoint"`
	PathWaypointX   float64 `json:"path_waypoint_x"`
	PathWaypointY   float64 `json:"path_waypoint_y"`
	PathFinalX      float64 `json:"path_final_x"`
	PathFinalY      float64 `json:"path_final_y"`
}

// GetBeeInfo returns a snapshot of bee i, or false when i is not a bee of
// the current population.
func (s *Simulation) GetBeeInfo(i int) (BeeDebugInfo, bool) {
	if i < 0 || i >= len(s.Bees) {
		return BeeDebugInfo{}, false
	}
	b := &s.Bees[i]
	info := BeeDebugInfo{
		Index:       i,
		Role:        b.Role,
		Intent:      b.Intent,
		Mode:        b.Mode,
		InsideHive:  b.InsideHive,
		Energy:      b.Energy,
		Load:        b.Load,
		Capacity:    b.Capacity,
		HarvestRate: b.HarvestRate,
		Speed:       b.Speed(),
		AgeDays:     b.AgeDays,
		PosX:        b.Pos.X(),
		PosY:        b.Pos.Y(),
		TargetTile:  b.TargetTile,
		Trips:       b.Trips,
		PathValid:   b.Path.Valid,
	}
	if b.Path.Valid {
		info.PathFinalX, info.PathFinalY = b.Path.Final.X(), b.Path.Final.Y()
		if wp, ok := b.Path.Waypoint(); ok {
			info.PathHasWaypoint = true
			info.PathWaypointX, info.PathWaypointY = wp.X(), wp.Y()
		}
	}
	return info, true
}
