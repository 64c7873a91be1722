package engine

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/beehive/internal/agents"
	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/world"
)

func smallParams(bees int) config.Params {
	p := config.Defaults()
	p.BeeCount = bees
	return p
}

func newSim(t *testing.T, p config.Params) *Simulation {
	t.Helper()
	s, err := NewSimulation(p)
	require.NoError(t, err)
	return s
}

func runTicks(s *Simulation, n int) {
	for i := 0; i < n; i++ {
		s.Tick(s.Params.Sim.FixedDT)
	}
}

func firstFlowers(t *testing.T, s *Simulation) int {
	t.Helper()
	for _, i := range s.World.ResourceTiles() {
		tile := &s.World.Tiles[i]
		if tile.Terrain == world.TerrainFlowers &&
			tile.CenterX > 50 && tile.CenterX < s.Params.WorldWidthPx-50 &&
			tile.CenterY > 50 && tile.CenterY < s.Params.WorldHeightPx-50 {
			return i
		}
	}
	t.Fatal("no flowers tile inside the world")
	return -1
}

func TestInitRejectsInvalidParams(t *testing.T) {
	p := smallParams(8)
	p.Hex.QMin, p.Hex.QMax = 5, 1

	s, err := NewSimulation(p)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Contains(t, err.Error(), "q_min (5) must be <= q_max (1)")
}

func TestFailedInitKeepsState(t *testing.T) {
	s := newSim(t, smallParams(8))
	runTicks(s, 10)
	before := s.Bees[3].Pos

	bad := smallParams(16)
	bad.Bee.CapacityUl = 0
	require.Error(t, s.Init(bad))

	assert.Len(t, s.Bees, 8)
	assert.Equal(t, before, s.Bees[3].Pos)
	assert.Equal(t, uint64(10), s.LastTick)
}

func TestDeterminism(t *testing.T) {
	for _, noise := range []config.TerrainNoise{config.NoiseHash, config.NoiseSimplex} {
		t.Run(string(noise), func(t *testing.T) {
			p := smallParams(48)
			p.Hex.TerrainNoise = noise
			a := newSim(t, p)
			b := newSim(t, p)
			runTicks(a, 600)
			runTicks(b, 600)

			require.Equal(t, a.Bees, b.Bees)
			require.Equal(t, a.World.Tiles, b.World.Tiles)
			assert.Equal(t, a.Colony, b.Colony)
			assert.Equal(t, a.Events, b.Events)
		})
	}
}

func TestNectarInvariantsHoldEveryTick(t *testing.T) {
	s := newSim(t, smallParams(128))
	dt := s.Params.Sim.FixedDT
	pre := make([]float64, s.World.Count())

	for tick := 0; tick < 1200; tick++ {
		for i := range s.World.Tiles {
			pre[i] = s.World.Tiles[i].NectarStock
		}
		s.Tick(dt)
		for i := range s.World.Tiles {
			tile := &s.World.Tiles[i]
			require.GreaterOrEqual(t, tile.NectarStock, 0.0, "tile %d", i)
			require.LessOrEqual(t, tile.NectarStock, tile.NectarCapacity, "tile %d", i)
			drawn := s.ledger.Drawn(i)
			require.LessOrEqual(t, drawn, tile.FlowCapacity*dt+1e-9, "tile %d", i)
			require.LessOrEqual(t, drawn, pre[i]+1e-9, "tile %d", i)
		}
	}
}

func TestForagerScenario(t *testing.T) {
	s := newSim(t, smallParams(2))
	idx := firstFlowers(t, s)
	tile := &s.World.Tiles[idx]
	tile.NectarStock = 100

	b := &s.Bees[1]
	b.Role = agents.RoleForager
	b.Mode = agents.ModeForaging
	b.Intent = agents.IntentHarvest
	b.TargetTile = idx
	b.Pos = mgl64.Vec2{tile.CenterX, tile.CenterY}
	b.Vel = mgl64.Vec2{}
	b.Energy = 1
	b.Load = 0
	b.Path.Clear()

	for i := 0; i < 3; i++ {
		require.Equal(t, agents.ModeForaging, b.Mode, "tick %d", i)
		s.Tick(1)
	}
	assert.InDelta(t, 45.0, b.Load, 1e-9)
	assert.NotEqual(t, agents.ModeForaging, b.Mode)
	assert.InDelta(t, 45.0, s.Colony.Harvested, 1e-9)
}

func TestColonyCompletesTrips(t *testing.T) {
	s := newSim(t, smallParams(64))
	runTicks(s, int(180 / s.Params.Sim.FixedDT))

	assert.Positive(t, s.Colony.Trips)
	assert.Positive(t, s.Colony.Reserve)
	assert.LessOrEqual(t, s.Colony.Reserve, s.Colony.Harvested+1e-9)

	st := s.Report()
	assert.Equal(t, 64, st.Bees)
	assert.Equal(t, s.Colony.Trips, st.Trips)
	total := 0
	for _, n := range st.Modes {
		total += n
	}
	assert.Equal(t, 64, total)
}

func TestFindBeeNear(t *testing.T) {
	s := newSim(t, smallParams(4))
	s.Bees[0].Pos = mgl64.Vec2{100, 100}
	s.Bees[1].Pos = mgl64.Vec2{103, 100}
	s.Bees[2].Pos = mgl64.Vec2{100, 103}
	s.Bees[3].Pos = mgl64.Vec2{900, 600}
	s.index.invalidate()

	examples := []struct {
		Name   string
		X, Y   float64
		Radius float64
		Want   int
		Found  bool
	}{
		{Name: "exact hit", X: 100, Y: 100, Radius: 5, Want: 0, Found: true},
		{Name: "nearest of three", X: 104, Y: 100, Radius: 18, Want: 1, Found: true},
		{Name: "tie goes to lower index", X: 103, Y: 103, Radius: 18, Want: 1, Found: true},
		{Name: "outside radius", X: 500, Y: 500, Radius: 18, Want: -1, Found: false},
		{Name: "box corner but beyond radius", X: 896, Y: 596, Radius: 5, Want: -1, Found: false},
		{Name: "zero radius", X: 100, Y: 100, Radius: 0, Want: -1, Found: false},
	}
	for _, ex := range examples {
		t.Run(ex.Name, func(t *testing.T) {
			got, ok := s.FindBeeNear(ex.X, ex.Y, ex.Radius)
			assert.Equal(t, ex.Found, ok)
			assert.Equal(t, ex.Want, got)
		})
	}

	// Invalidating rebuilds the index from current positions.
	s.Bees[3].Pos = mgl64.Vec2{500, 500}
	s.index.invalidate()
	got, ok := s.FindBeeNear(500, 500, 18)
	require.True(t, ok)
	assert.Equal(t, 3, got)
}

func TestGetBeeInfo(t *testing.T) {
	s := newSim(t, smallParams(5))

	_, ok := s.GetBeeInfo(-1)
	assert.False(t, ok)
	_, ok = s.GetBeeInfo(5)
	assert.False(t, ok)

	q, ok := s.Queen()
	require.True(t, ok)
	assert.Equal(t, 0, q.Index)
	assert.Equal(t, agents.RoleQueen, q.Role)
	assert.True(t, q.InsideHive)

	b := &s.Bees[2]
	b.Path.Set(mgl64.Vec2{10, 20}, []mgl64.Vec2{{5, 6}})
	info, ok := s.GetBeeInfo(2)
	require.True(t, ok)
	assert.True(t, info.PathValid)
	assert.True(t, info.PathHasWaypoint)
	assert.Equal(t, 5.0, info.PathWaypointX)
	assert.Equal(t, 20.0, info.PathFinalY)
	assert.Equal(t, b.Pos.X(), info.PosX)
	assert.Equal(t, b.Capacity, info.Capacity)
}

func TestBuildView(t *testing.T) {
	s := newSim(t, smallParams(6))
	tick := s.LastTick
	before := append([]agents.Bee(nil), s.Bees...)

	v := s.BuildView(NoSelection)
	assert.Equal(t, 6, v.BeeCount())
	assert.Len(t, v.Positions, 12)
	assert.Len(t, v.Colors, 6)
	assert.Empty(t, v.DebugLines)
	assert.Equal(t, NoSelection, v.Selected)
	assert.Equal(t, tick, s.LastTick)
	assert.Equal(t, before, s.Bees)

	flowers := 0
	for _, i := range s.World.ResourceTiles() {
		if s.World.Tiles[i].Terrain == world.TerrainFlowers {
			flowers++
		}
	}
	assert.Len(t, v.Patches.Positions, 2*flowers)
	assert.Len(t, v.Patches.RingColors, flowers)
	for i := range v.Patches.Radii {
		assert.LessOrEqual(t, v.Patches.Radii[i], v.Patches.RingRadii[i])
	}

	examples := []struct {
		Name      string
		Final     mgl64.Vec2
		Waypoints []mgl64.Vec2
		Valid     bool
		Lines     int
	}{
		{Name: "no path", Valid: false, Lines: 0},
		{Name: "final only", Final: mgl64.Vec2{50, 60}, Valid: true, Lines: 1},
		{Name: "waypoint then final", Final: mgl64.Vec2{50, 60}, Waypoints: []mgl64.Vec2{{400, 470}}, Valid: true, Lines: 2},
		{Name: "waypoint equal to final collapses", Final: mgl64.Vec2{50, 60}, Waypoints: []mgl64.Vec2{{50, 60.0005}}, Valid: true, Lines: 1},
	}
	for _, ex := range examples {
		t.Run(ex.Name, func(t *testing.T) {
			b := &s.Bees[1]
			b.Path.Clear()
			if ex.Valid {
				b.Path.Set(ex.Final, ex.Waypoints)
			}
			v := s.BuildView(1)
			require.Len(t, v.DebugLines, ex.Lines)
			for _, l := range v.DebugLines {
				assert.Equal(t, DebugLineColor, l.Color)
			}
			if ex.Lines > 0 {
				assert.Equal(t, float32(b.Pos.X()), v.DebugLines[0].X0)
				last := v.DebugLines[len(v.DebugLines)-1]
				assert.Equal(t, float32(ex.Final.X()), last.X1)
				assert.Equal(t, float32(ex.Final.Y()), last.Y1)
			}
		})
	}

	v = s.BuildView(99)
	assert.Equal(t, NoSelection, v.Selected)
	assert.Empty(t, v.DebugLines)
}

func TestTileQueries(t *testing.T) {
	s := newSim(t, smallParams(2))

	idx, tile, ok := s.PickTile(s.Params.Hex.OriginX, s.Params.Hex.OriginY)
	require.True(t, ok)
	assert.Equal(t, int16(0), tile.Q)
	assert.Equal(t, int16(0), tile.R)

	got, ok := s.Tile(idx)
	require.True(t, ok)
	assert.Equal(t, tile, got)

	_, ok = s.Tile(-1)
	assert.False(t, ok)
	_, ok = s.Tile(s.World.Count())
	assert.False(t, ok)
	_, _, ok = s.PickTile(-1e6, -1e6)
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	t.Run("runtime", func(t *testing.T) {
		s := newSim(t, smallParams(16))
		runTicks(s, 30)
		pos := s.Bees[5].Pos
		tick := s.LastTick

		next := s.Params
		next.Bee.SpeedMps = 90
		next.Bee.CapacityUl = 30
		next.Motion.SpawnMode = config.SpawnGaussianDirection
		mode, err := s.Apply(next)
		require.NoError(t, err)
		assert.Equal(t, ApplyRuntime, mode)
		assert.Equal(t, pos, s.Bees[5].Pos)
		assert.Equal(t, tick, s.LastTick)
		assert.Equal(t, 90.0, s.Params.Bee.SpeedMps)
		for i := range s.Bees {
			assert.Equal(t, 30.0, s.Bees[i].Capacity)
			assert.LessOrEqual(t, s.Bees[i].Load, 30.0)
		}
	})

	t.Run("world rebuild keeps bees", func(t *testing.T) {
		s := newSim(t, smallParams(16))
		runTicks(s, 30)
		s.Colony.Remember(firstFlowers(t, s))
		pos := s.Bees[5].Pos
		count := s.World.Count()

		next := s.Params
		next.Hex.CellSize = 40
		mode, err := s.Apply(next)
		require.NoError(t, err)
		assert.Equal(t, ApplyWorld, mode)
		assert.Equal(t, pos, s.Bees[5].Pos)
		assert.Equal(t, count, s.World.Count())
		assert.Empty(t, s.Colony.Known())
		for i := range s.Bees {
			assert.Equal(t, agents.NoTile, s.Bees[i].TargetTile)
			assert.NotEqual(t, agents.ModeForaging, s.Bees[i].Mode)
		}
		runTicks(s, 30)
	})

	t.Run("render and collision knobs keep tiles", func(t *testing.T) {
		s := newSim(t, smallParams(16))
		idx := firstFlowers(t, s)
		s.World.Tiles[idx].NectarStock = 3
		s.Colony.Remember(idx)
		b := &s.Bees[1]
		b.Mode, b.Intent, b.TargetTile = agents.ModeForaging, agents.IntentHarvest, idx
		count := s.World.Count()

		next := s.Params
		next.Hex.ShowGrid = !next.Hex.ShowGrid
		mode, err := s.Apply(next)
		require.NoError(t, err)
		assert.Equal(t, ApplyRuntime, mode)

		next = s.Params
		next.Hive.Restitution = 0.7
		next.RNGSeed++
		mode, err = s.Apply(next)
		require.NoError(t, err)
		assert.Equal(t, ApplyRuntime, mode)

		assert.Equal(t, count, s.World.Count())
		assert.Equal(t, 3.0, s.World.Tiles[idx].NectarStock)
		assert.Equal(t, agents.ModeForaging, s.Bees[1].Mode)
		assert.Equal(t, idx, s.Bees[1].TargetTile)
		assert.Equal(t, []int{idx}, s.Colony.Known())
		assert.Equal(t, 0.7, s.Hive.Restitution)
		assert.Equal(t, next.RNGSeed, s.Params.RNGSeed)
	})

	t.Run("bee count reinit", func(t *testing.T) {
		s := newSim(t, smallParams(16))
		runTicks(s, 30)

		next := s.Params
		next.BeeCount = 24
		mode, err := s.Apply(next)
		require.NoError(t, err)
		assert.Equal(t, ApplyReinit, mode)
		assert.Len(t, s.Bees, 24)
		assert.Equal(t, uint64(0), s.LastTick)
	})

	t.Run("invalid keeps previous", func(t *testing.T) {
		s := newSim(t, smallParams(16))
		old := s.Params

		next := s.Params
		next.Hive.Restitution = 2
		_, err := s.Apply(next)
		require.ErrorIs(t, err, config.ErrInvalid)
		assert.Equal(t, old, s.Params)
	})

	t.Run("runtime refuses reinit changes", func(t *testing.T) {
		s := newSim(t, smallParams(16))
		next := s.Params
		next.WorldWidthPx = 900
		require.ErrorIs(t, s.ApplyRuntimeParams(next), config.ErrInvalid)
		assert.Len(t, s.Bees, 16)
	})
}

func TestEventsSince(t *testing.T) {
	s := newSim(t, smallParams(2))
	s.record(1, agents.Note{Kind: agents.NotePatchDiscovered, Tile: 7, Amount: 12})
	s.record(1, agents.Note{Kind: agents.NoteTripCompleted, Tile: agents.NoTile, Amount: 45})
	s.record(0, agents.Note{Kind: agents.NoteNone})

	require.Len(t, s.Events, 2)
	assert.Equal(t, "patch_discovered", s.Events[0].Category)
	assert.Contains(t, s.Events[0].Description, "patch 7")

	since := s.EventsSince(s.Events[0].Seq)
	require.Len(t, since, 1)
	assert.Equal(t, "trip_completed", since[0].Category)
	assert.Empty(t, s.EventsSince(s.Events[1].Seq))

	for i := 0; i < maxEvents+10; i++ {
		s.record(1, agents.Note{Kind: agents.NoteLowEnergy})
	}
	assert.Len(t, s.Events, maxEvents)
}

func engineParams() config.Params {
	p := smallParams(4)
	p.Sim.FixedDT = 0.125
	p.Sim.MaxAccumulatorS = 0.5
	p.Sim.ReportEveryS = 1
	return p
}

func TestEngineAdvance(t *testing.T) {
	e := NewEngine(newSim(t, engineParams()))

	examples := []struct {
		Name  string
		Setup func()
		Frame float64
		Ticks int
	}{
		{Name: "two steps", Frame: 0.25, Ticks: 2},
		{Name: "partial step carries over", Frame: 0.0625, Ticks: 0},
		{Name: "carry completes a step", Frame: 0.0625, Ticks: 1},
		{Name: "slow frame is clamped", Frame: 10, Ticks: 4},
		{Name: "paused", Setup: func() { e.SetPaused(true) }, Frame: 1, Ticks: 0},
		{Name: "single step while paused", Setup: func() { e.Step() }, Frame: 1, Ticks: 1},
		{Name: "double speed", Setup: func() {
			e.SetPaused(false)
			require.NoError(t, e.SetSpeed(2))
		}, Frame: 0.125, Ticks: 2},
	}
	for _, ex := range examples {
		t.Run(ex.Name, func(t *testing.T) {
			if ex.Setup != nil {
				ex.Setup()
			}
			assert.Equal(t, ex.Ticks, e.Advance(ex.Frame))
		})
	}
	assert.Equal(t, uint64(10), e.LastTick())
	assert.Error(t, e.SetSpeed(0))
}

func TestEngineCallbacks(t *testing.T) {
	e := NewEngine(newSim(t, engineParams()))
	ticks, reports := 0, 0
	var last SimStats
	e.OnTick = func(*Simulation) { ticks++ }
	e.OnReport = func(_ *Simulation, st SimStats) {
		reports++
		last = st
	}

	e.RunTicks(16)
	assert.Equal(t, 16, ticks)
	assert.Equal(t, 2, reports)
	assert.Equal(t, uint64(16), last.Tick)
	assert.Equal(t, 4, last.Bees)

	next := e.Params()
	next.BeeCount = 6
	mode, err := e.Apply(next)
	require.NoError(t, err)
	assert.Equal(t, ApplyReinit, mode)
	e.RunTicks(8)
	assert.Equal(t, 3, reports)
	assert.Equal(t, 6, e.Stats().Bees)
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	e := NewEngine(newSim(t, engineParams()))
	e.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	assert.NoError(t, e.Run(ctx))
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, "Day 1, 00:00:00", SimTime(0))
	assert.Equal(t, "Day 1, 01:01:05", SimTime(3665.5))
	assert.Equal(t, "Day 2, 00:00:00", SimTime(86400))
}
