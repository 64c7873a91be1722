package engine

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/beehive/internal/agents"
	"github.com/talgya/beehive/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Event is a notable occurrence in the colony.
type Event struct {
	Seq         uint64  `json:"seq"`
	Tick        uint64  `json:"tick"`
	Time        float64 `json:"time"`
	Category    string  `json:"category"` // patch_discovered, patch_depleted, trip_completed, low_energy
	Bee         int     `json:"bee"`
	Tile        int     `json:"tile"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// SimStats is an aggregate snapshot of the colony.
type SimStats struct {
	Tick          uint64         `json:"tick"`
	Time          float64        `json:"time"`
	Bees          int            `json:"bees"`
	InsideHive    int            `json:"inside_hive"`
	Modes         map[string]int `json:"modes"`
	Roles         map[string]int `json:"roles"`
	AvgEnergy     float64        `json:"avg_energy"`
	Carried       float64        `json:"carried_uL"`
	Reserve       float64        `json:"reserve_uL"`
	Harvested     float64        `json:"harvested_uL"`
	Trips         int            `json:"trips"`
	TotalStock    float64        `json:"total_stock"`
	Patches       int            `json:"patches"`
	KnownPatches  int            `json:"known_patches"`
	DepletedTiles int            `json:"depleted_tiles"`
}

// record appends a bee note to the event log, dropping the oldest entries
// past maxEvents.
func (s *Simulation) record(bee int, n agents.Note) {
	s.eventSeq++
	e := Event{
		Seq:      s.eventSeq,
		Tick:     s.LastTick,
		Time:     s.Time,
		Category: agents.NoteName(n.Kind),
		Bee:      bee,
		Tile:     n.Tile,
		Amount:   n.Amount,
	}
	switch n.Kind {
	case agents.NotePatchDiscovered:
		e.Description = fmt.Sprintf("bee %d discovered patch %d holding %.1f uL", bee, n.Tile, n.Amount)
	case agents.NotePatchDepleted:
		e.Description = fmt.Sprintf("bee %d emptied patch %d", bee, n.Tile)
	case agents.NoteTripCompleted:
		e.Description = fmt.Sprintf("bee %d completed a foraging trip", bee)
	case agents.NoteLowEnergy:
		e.Description = fmt.Sprintf("bee %d turned back on low energy", bee)
	case agents.NoteNone:
		return
	}
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	slog.Debug("event", "category", e.Category, "description", e.Description)
}

// EventsSince returns the retained events with a sequence number after seq.
func (s *Simulation) EventsSince(seq uint64) []Event {
	i := len(s.Events)
	for i > 0 && s.Events[i-1].Seq > seq {
		i--
	}
	out := make([]Event, len(s.Events)-i)
	copy(out, s.Events[i:])
	return out
}

// updateStats recomputes the aggregate snapshot.
func (s *Simulation) updateStats() {
	st := SimStats{
		Tick:         s.LastTick,
		Time:         s.Time,
		Bees:         len(s.Bees),
		Modes:        make(map[string]int, agents.NumModes),
		Roles:        make(map[string]int, agents.NumRoles),
		Reserve:      s.Colony.Reserve,
		Harvested:    s.Colony.Harvested,
		Trips:        s.Colony.Trips,
		KnownPatches: len(s.Colony.Known()),
	}
	energy := 0.0
	for i := range s.Bees {
		b := &s.Bees[i]
		st.Modes[agents.ModeName(b.Mode)]++
		st.Roles[agents.RoleName(b.Role)]++
		if b.InsideHive {
			st.InsideHive++
		}
		energy += b.Energy
		st.Carried += b.Load
	}
	if len(s.Bees) > 0 {
		st.AvgEnergy = energy / float64(len(s.Bees))
	}
	st.TotalStock = s.World.TotalNectar()
	for _, i := range s.World.ResourceTiles() {
		t := &s.World.Tiles[i]
		if t.Terrain == world.TerrainFlowers {
			st.Patches++
			if t.NectarStock < agents.MinPatchStock {
				st.DepletedTiles++
			}
		}
	}
	s.Stats = st
}

// Report refreshes the stats and logs a summary of the colony.
func (s *Simulation) Report() SimStats {
	s.updateStats()
	st := s.Stats

	slog.Info("colony report",
		"tick", st.Tick,
		"time", SimTime(st.Time),
		"bees", st.Bees,
		"inside", st.InsideHive,
		"foraging", st.Modes[agents.ModeName(agents.ModeForaging)],
		"returning", st.Modes[agents.ModeName(agents.ModeReturning)],
		"avg_energy", fmt.Sprintf("%.3f", st.AvgEnergy),
		"reserve_uL", humanize.FormatFloat("#,###.#", st.Reserve),
		"harvested_uL", humanize.FormatFloat("#,###.#", st.Harvested),
		"trips", humanize.Comma(int64(st.Trips)),
		"stock", humanize.FormatFloat("#,###.#", st.TotalStock),
		"known_patches", st.KnownPatches,
		"depleted", st.DepletedTiles,
	)

	recent := s.Events
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for _, e := range recent {
		if e.Category == agents.NoteName(agents.NotePatchDiscovered) || e.Category == agents.NoteName(agents.NotePatchDepleted) {
			slog.Info("event", "category", e.Category, "description", e.Description)
		}
	}
	return st
}
