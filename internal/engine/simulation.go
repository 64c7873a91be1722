// Simulation ties the world, the hive, the colony, and the bees together and
// advances them one fixed step at a time.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/beehive/internal/agents"
	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/economy"
	"github.com/talgya/beehive/internal/hive"
	"github.com/talgya/beehive/internal/world"
)

// ApplyMode reports how a parameter change was applied.
type ApplyMode uint8

const (
	ApplyRuntime ApplyMode = iota // Tunables updated in place
	ApplyWorld                    // World and hive rebuilt, bees kept
	ApplyReinit                   // World and population rebuilt from scratch
)

// ApplyModeName returns a human-readable name for an apply mode.
func ApplyModeName(m ApplyMode) string {
	switch m {
	case ApplyRuntime:
		return "runtime"
	case ApplyWorld:
		return "world"
	case ApplyReinit:
		return "reinit"
	default:
		return "unknown"
	}
}

func (m ApplyMode) String() string { return ApplyModeName(m) }

// Simulation holds the complete colony state. It is not safe for concurrent
// use; Engine serializes access to it.
type Simulation struct {
	Params config.Params
	World  *world.World
	Hive   hive.Hive
	Bees   []agents.Bee
	Colony economy.Colony

	Time     float64 // simulated seconds since init
	LastTick uint64  // ticks since init

	Events []Event // recent events, oldest first
	Stats  SimStats

	rng    *rand.Rand
	ledger *economy.Ledger
	index  beeIndex

	eventSeq uint64
}

// NewSimulation validates p and builds a fresh simulation from it.
func NewSimulation(p config.Params) (*Simulation, error) {
	s := &Simulation{}
	if err := s.Init(p); err != nil {
		return nil, err
	}
	return s, nil
}

// Init rebuilds the world and the whole population from p. On failure the
// previous state is left untouched.
func (s *Simulation) Init(p config.Params) error {
	if err := config.Validate(&p); err != nil {
		return err
	}
	w, err := world.New(&p)
	if err != nil {
		return fmt.Errorf("build world: %w", err)
	}
	h := hive.New(p.Hive)
	rng := rand.New(rand.NewSource(int64(p.RNGSeed)))
	bees := agents.NewSpawner(rng).SpawnColony(&p, &h)

	s.Params = p
	s.World = w
	s.Hive = h
	s.Bees = bees
	s.Colony = economy.Colony{}
	s.rng = rng
	s.ledger = economy.NewLedger(w.Count())
	s.Time = 0
	s.LastTick = 0
	s.Events = s.Events[:0]
	s.index.invalidate()
	s.updateStats()

	slog.Info("simulation initialized",
		"bees", len(bees),
		"tiles", w.Count(),
		"patches", len(w.ResourceTiles()),
		"hive", h.Enabled(),
		"seed", p.RNGSeed,
		"noise", p.Hex.TerrainNoise,
	)
	return nil
}

// Apply moves the simulation to next, choosing the least disruptive path:
// a full reinit when the population or world size changes, a world rebuild
// when hex or hive geometry changes, and an in-place update otherwise.
// An invalid next leaves the simulation unchanged.
func (s *Simulation) Apply(next config.Params) (ApplyMode, error) {
	if err := config.Validate(&next); err != nil {
		slog.Warn("params rejected", "error", err)
		return ApplyRuntime, err
	}
	switch {
	case config.RequiresReinit(&s.Params, &next):
		return ApplyReinit, s.Init(next)
	case config.WorldChanged(&s.Params, &next):
		return ApplyWorld, s.rebuildWorld(next)
	default:
		return ApplyRuntime, s.ApplyRuntimeParams(next)
	}
}

// ApplyRuntimeParams hot-applies tunable values. Bee positions, modes, and
// loads are kept, and so are tiles and the colony's known patches; per-bee
// copies of capacity, harvest rate, radius, and color are refreshed, and the
// hive picks up new collision knobs.
func (s *Simulation) ApplyRuntimeParams(next config.Params) error {
	if err := config.Validate(&next); err != nil {
		return err
	}
	if config.RequiresReinit(&s.Params, &next) {
		return fmt.Errorf("%w: bee_count and world size need a full reinit", config.ErrInvalid)
	}
	if config.WorldChanged(&s.Params, &next) {
		return fmt.Errorf("%w: hex and hive geometry need a world rebuild", config.ErrInvalid)
	}
	s.reseed(next.RNGSeed)
	s.Params = next
	s.Hive = hive.New(next.Hive)
	s.refreshBees()
	slog.Debug("runtime params applied", "speed_mps", next.Bee.SpeedMps, "spawn_mode", next.Motion.SpawnMode)
	return nil
}

// reseed restarts the bee RNG when the seed changes.
func (s *Simulation) reseed(seed uint64) {
	if seed != s.Params.RNGSeed {
		s.rng = rand.New(rand.NewSource(int64(seed)))
	}
}

func (s *Simulation) refreshBees() {
	p := &s.Params
	m := &p.Motion
	for i := range s.Bees {
		b := &s.Bees[i]
		b.Capacity = p.Bee.CapacityUl
		b.Load = min(b.Load, b.Capacity)
		b.HarvestRate = p.Bee.HarvestRateUlps
		b.Radius = p.BeeRadiusPx
		if b.IsQueen() {
			b.Radius *= agents.QueenRadiusScale
		}
		b.Color = p.BeeColor
		b.CruiseSpeed = min(max(b.CruiseSpeed, m.MinSpeed), m.MaxSpeed)
	}
}

// rebuildWorld regenerates the hex world and hive in place. Bees keep their
// positions but lose their targets: foragers pick again next tick, and
// returning bees plan a new way home.
func (s *Simulation) rebuildWorld(next config.Params) error {
	w, err := world.New(&next)
	if err != nil {
		return fmt.Errorf("rebuild world: %w", err)
	}
	s.reseed(next.RNGSeed)
	s.Params = next
	s.World = w
	s.Hive = hive.New(next.Hive)
	s.ledger.Resize(w.Count())
	s.Colony.Forget()

	for i := range s.Bees {
		b := &s.Bees[i]
		b.TargetTile = agents.NoTile
		b.Path.Clear()
		b.InsideHive = s.Hive.Contains(b.Pos)
		switch b.Mode {
		case agents.ModeForaging, agents.ModeOutbound:
			b.Mode = agents.ModeOutbound
			b.Intent = agents.IntentFindPatch
		case agents.ModeEntering:
			b.Mode = agents.ModeReturning
			b.Intent = agents.IntentReturnHome
		case agents.ModeIdle, agents.ModeReturning, agents.ModeUnloading:
		}
	}
	s.refreshBees()
	s.index.invalidate()

	slog.Info("world rebuilt",
		"tiles", w.Count(),
		"patches", len(w.ResourceTiles()),
		"hive", s.Hive.Enabled(),
	)
	return nil
}

// Tick advances the simulation by dt seconds. Bees update in index order,
// so two bees drawing on one tile are served as if one after the other;
// nectar recharge runs after all extraction.
func (s *Simulation) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	s.LastTick++
	s.Time += dt
	s.ledger.Begin(dt)

	env := &agents.Env{
		Params: &s.Params,
		World:  s.World,
		Hive:   &s.Hive,
		Ledger: s.ledger,
		Colony: &s.Colony,
		Rng:    s.rng,
	}
	for i := range s.Bees {
		note := agents.Update(&s.Bees[i], env, dt)
		if note.Kind != agents.NoteNone {
			s.record(i, note)
		}
	}
	economy.Recharge(s.World, dt)
	s.index.invalidate()
}

// Queen returns the snapshot of bee 0, the colony's queen.
func (s *Simulation) Queen() (BeeDebugInfo, bool) {
	return s.GetBeeInfo(0)
}

// Tile returns a copy of the tile at index i.
func (s *Simulation) Tile(i int) (world.Tile, bool) {
	t := s.World.At(i)
	if t == nil {
		return world.Tile{}, false
	}
	return *t, true
}

// PickTile returns the index and a copy of the tile under world point (x, y).
func (s *Simulation) PickTile(x, y float64) (int, world.Tile, bool) {
	_, idx, ok := s.World.Pick(x, y)
	if !ok {
		return -1, world.Tile{}, false
	}
	return idx, s.World.Tiles[idx], true
}
