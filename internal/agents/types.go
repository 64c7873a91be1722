// Package agents provides the bee agent data model, spawning, motion, and
// the per-tick foraging state machine.
package agents

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Role is a bee's caste job in the colony.
type Role uint8

const (
	RoleQueen Role = iota
	RoleNurse
	RoleHousekeeper
	RoleStorage
	RoleForager
	RoleScout
	RoleGuard
)

// NumRoles is the number of roles.
const NumRoles = 7

// RoleName returns a human-readable name for a role.
func RoleName(r Role) string {
	switch r {
	case RoleQueen:
		return "Queen"
	case RoleNurse:
		return "Nurse"
	case RoleHousekeeper:
		return "Housekeeper"
	case RoleStorage:
		return "Storage"
	case RoleForager:
		return "Forager"
	case RoleScout:
		return "Scout"
	case RoleGuard:
		return "Guard"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

func (r Role) String() string { return RoleName(r) }

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) { return []byte(RoleName(r)), nil }

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(text []byte) error {
	for v := Role(0); v < NumRoles; v++ {
		if RoleName(v) == string(text) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", text)
}

// Forages reports whether bees of this role leave the hive for nectar.
func (r Role) Forages() bool {
	switch r {
	case RoleForager, RoleScout:
		return true
	case RoleQueen, RoleNurse, RoleHousekeeper, RoleStorage, RoleGuard:
		return false
	default:
		return false
	}
}

// Intent is what a bee is trying to achieve.
type Intent uint8

const (
	IntentFindPatch Intent = iota
	IntentHarvest
	IntentReturnHome
	IntentUnload
	IntentRest
	IntentExplore
)

// NumIntents is the number of intents.
const NumIntents = 6

// IntentName returns a human-readable name for an intent.
func IntentName(i Intent) string {
	switch i {
	case IntentFindPatch:
		return "FindPatch"
	case IntentHarvest:
		return "Harvest"
	case IntentReturnHome:
		return "ReturnHome"
	case IntentUnload:
		return "Unload"
	case IntentRest:
		return "Rest"
	case IntentExplore:
		return "Explore"
	default:
		return fmt.Sprintf("Intent(%d)", uint8(i))
	}
}

func (i Intent) String() string { return IntentName(i) }

// MarshalText encodes the intent by name.
func (i Intent) MarshalText() ([]byte, error) { return []byte(IntentName(i)), nil }

// UnmarshalText decodes a intent name.
func (i *Intent) UnmarshalText(text []byte) error {
	for v := Intent(0); v < NumIntents; v++ {
		if IntentName(v) == string(text) {
			*i = v
			return nil
		}
	}
	return fmt.Errorf("unknown intent %q", text)
}

// Mode is the bee's place in the foraging cycle.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeOutbound
	ModeForaging
	ModeReturning
	ModeEntering
	ModeUnloading
)

// NumModes is the number of modes.
const NumModes = 6

// ModeName returns a human-readable name for a mode.
func ModeName(m Mode) string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModeOutbound:
		return "Outbound"
	case ModeForaging:
		return "Foraging"
	case ModeReturning:
		return "Returning"
	case ModeEntering:
		return "Entering"
	case ModeUnloading:
		return "Unloading"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

func (m Mode) String() string { return ModeName(m) }

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(ModeName(m)), nil }

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	for v := Mode(0); v < NumModes; v++ {
		if ModeName(v) == string(text) {
			*m = v
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// Hovering reports whether the mode holds the bee still.
func (m Mode) Hovering() bool {
	switch m {
	case ModeForaging, ModeUnloading:
		return true
	case ModeIdle, ModeOutbound, ModeReturning, ModeEntering:
		return false
	default:
		return false
	}
}

// Path is a bee's steering target: up to a few routing waypoints followed
// by a final destination.
type Path struct {
	Valid     bool         `json:"valid"`
	Waypoints []mgl64.Vec2 `json:"waypoints,omitempty"`
	Final     mgl64.Vec2   `json:"final"`
}

// Set replaces the path.
func (p *Path) Set(final mgl64.Vec2, waypoints []mgl64.Vec2) {
	p.Valid = true
	p.Final = final
	p.Waypoints = append(p.Waypoints[:0], waypoints...)
}

// Clear invalidates the path.
func (p *Path) Clear() {
	p.Valid = false
	p.Waypoints = p.Waypoints[:0]
	p.Final = mgl64.Vec2{}
}

// Next returns the point the bee should steer at now.
func (p *Path) Next() mgl64.Vec2 {
	if len(p.Waypoints) > 0 {
		return p.Waypoints[0]
	}
	return p.Final
}

// Waypoint returns the pending waypoint, if any.
func (p *Path) Waypoint() (mgl64.Vec2, bool) {
	if !p.Valid || len(p.Waypoints) == 0 {
		return mgl64.Vec2{}, false
	}
	return p.Waypoints[0], true
}

// advance drops the pending waypoint.
func (p *Path) advance() {
	if len(p.Waypoints) > 0 {
		p.Waypoints = p.Waypoints[1:]
	}
}

// NoTile marks a bee with no target tile.
const NoTile = -1

// Bee is one agent of the colony.
type Bee struct {
	Pos mgl64.Vec2 `json:"pos"`
	Vel mgl64.Vec2 `json:"vel"`

	Role   Role   `json:"role"`
	Intent Intent `json:"intent"`
	Mode   Mode   `json:"mode"`

	Energy      float64 `json:"energy"`       // 0.0-1.0
	Load        float64 `json:"load_uL"`      // carried nectar
	Capacity    float64 `json:"capacity_uL"`  // crop size
	HarvestRate float64 `json:"harvest_rate"` // uL per second
	CruiseSpeed float64 `json:"cruise_speed"` // random-walk speed drawn at spawn
	AgeDays     float64 `json:"age_days"`

	Radius float64    `json:"radius"`
	Color  [4]float32 `json:"color"`

	InsideHive bool `json:"inside_hive"`
	TargetTile int  `json:"target_tile"`
	Path       Path `json:"path"`

	Trips   int     `json:"trips"`
	retryIn float64 // seconds until an exploring forager looks for a patch again
}

// Speed returns the bee's current speed.
func (b *Bee) Speed() float64 {
	return b.Vel.Len()
}

// IsQueen reports whether the bee is the colony's queen.
func (b *Bee) IsQueen() bool {
	return b.Role == RoleQueen
}
