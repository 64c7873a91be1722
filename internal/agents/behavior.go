// Bee behavior: the foraging state machine.
// Every tick a bee re-evaluates its mode, steers, moves, and then acts on
// the tile or hive it has reached.
//
//	Idle -> Outbound -> Foraging -> Returning -> Entering -> Unloading -> Idle/Outbound
package agents

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/economy"
	"github.com/talgya/beehive/internal/hive"
	"github.com/talgya/beehive/internal/world"
)

const (
	// MinPatchStock is the stock below which a patch is not worth a trip.
	MinPatchStock = 1.0
	// patchRetryS is how long an exploring forager waits before looking for
	// a patch again.
	patchRetryS = 1.0
	loadEps     = 1e-9
)

const secondsPerDay = 86400

// Env is everything a bee reads or changes during its update.
type Env struct {
	Params *config.Params
	World  *world.World
	Hive   *hive.Hive
	Ledger *economy.Ledger
	Colony *economy.Colony
	Rng    *rand.Rand
}

// NoteKind enumerates the notable outcomes of a bee update.
type NoteKind uint8

const (
	NoteNone NoteKind = iota
	NotePatchDiscovered
	NotePatchDepleted
	NoteTripCompleted
	NoteLowEnergy
)

// NoteName returns a human-readable name for a note kind.
func NoteName(k NoteKind) string {
	switch k {
	case NoteNone:
		return "none"
	case NotePatchDiscovered:
		return "patch_discovered"
	case NotePatchDepleted:
		return "patch_depleted"
	case NoteTripCompleted:
		return "trip_completed"
	case NoteLowEnergy:
		return "low_energy"
	default:
		return "unknown"
	}
}

func (k NoteKind) String() string { return NoteName(k) }

// Note is a notable outcome of one bee update, for the event log.
type Note struct {
	Kind   NoteKind
	Tile   int
	Amount float64
}

// Update advances one bee by dt and returns anything worth logging.
func Update(b *Bee, env *Env, dt float64) Note {
	var note Note
	b.AgeDays += dt / secondsPerDay
	decide(b, env, dt, &note)
	steer(b, env, dt)
	integrate(b, env, dt)
	act(b, env, dt, &note)
	return note
}

// clearance is how far routing waypoints stand off hive walls.
func clearance(env *Env) float64 {
	return env.Params.Bee.ArriveTolWorld
}

func decide(b *Bee, env *Env, dt float64, note *Note) {
	bp := &env.Params.Bee

	switch b.Mode {
	case ModeIdle:
		b.Intent = IntentRest
		if env.Hive.Enabled() && !b.InsideHive {
			// Idle bees rest inside; one caught outside heads home first.
			goHome(b, env)
			return
		}
		if b.Role.Forages() && b.Energy >= bp.DepartEnergy {
			choosePatch(b, env)
		}

	case ModeOutbound:
		if b.Energy <= bp.ReturnEnergy {
			*note = Note{Kind: NoteLowEnergy, Tile: b.TargetTile}
			goHome(b, env)
			return
		}
		switch b.Intent {
		case IntentFindPatch:
			t := env.World.At(b.TargetTile)
			if t == nil || t.NectarStock < MinPatchStock {
				choosePatch(b, env)
			}
		case IntentExplore:
			if b.Role == RoleForager {
				b.retryIn -= dt
				if b.retryIn <= 0 {
					choosePatch(b, env)
				}
			}
		case IntentHarvest, IntentReturnHome, IntentUnload, IntentRest:
			choosePatch(b, env)
		}
		replan(b, env)

	case ModeForaging:
		b.Intent = IntentHarvest
		if b.Energy <= bp.ReturnEnergy {
			*note = Note{Kind: NoteLowEnergy, Tile: b.TargetTile}
			goHome(b, env)
		}

	case ModeReturning:
		b.Intent = IntentReturnHome
		if !b.Path.Valid {
			planHome(b, env)
		}
		replan(b, env)

	case ModeEntering:
		b.Intent = IntentReturnHome
		if env.Hive.Enabled() && !b.InsideHive {
			b.Mode = ModeReturning
			planHome(b, env)
		}

	case ModeUnloading:
		b.Intent = IntentUnload
	}
}

// choosePatch sends a foraging bee to the nearest known patch with stock,
// else the nearest Flowers tile with stock, else out to explore. Scouts
// always explore.
func choosePatch(b *Bee, env *Env) {
	if b.Role == RoleScout {
		explore(b, env)
		return
	}
	idx, ok := economy.NearestPatch(env.World, env.Colony.Known(), b.Pos.X(), b.Pos.Y(), MinPatchStock)
	if !ok {
		idx, ok = economy.NearestPatch(env.World, env.World.ResourceTiles(), b.Pos.X(), b.Pos.Y(), MinPatchStock)
	}
	if !ok {
		explore(b, env)
		b.retryIn = patchRetryS
		return
	}
	t := env.World.At(idx)
	target := mgl64.Vec2{t.CenterX, t.CenterY}
	b.Mode = ModeOutbound
	b.Intent = IntentFindPatch
	b.TargetTile = idx
	b.Path.Set(target, env.Hive.Route(b.Pos, target, clearance(env)))
}

// explore sets the bee wandering. A bee inside the hive is first routed out
// through the entrance.
func explore(b *Bee, env *Env) {
	b.Mode = ModeOutbound
	b.Intent = IntentExplore
	b.TargetTile = NoTile
	b.Path.Clear()
	if env.Hive.Enabled() && b.InsideHive {
		c := clearance(env)
		exit := env.Hive.EntrancePoint().Add(env.Hive.EntranceNormal().Mul(2 * c))
		b.Path.Set(exit, env.Hive.Route(b.Pos, exit, c))
	}
}

func goHome(b *Bee, env *Env) {
	b.Mode = ModeReturning
	b.Intent = IntentReturnHome
	b.TargetTile = NoTile
	planHome(b, env)
}

// HomePoint is where returning bees unload: inside the hive behind the
// entrance, or the world center when there is no hive.
func HomePoint(env *Env) mgl64.Vec2 {
	if !env.Hive.Enabled() {
		return mgl64.Vec2{env.Params.WorldWidthPx * 0.5, env.Params.WorldHeightPx * 0.5}
	}
	_, inner := env.Hive.ApproachPoints(2 * clearance(env))
	return inner
}

func planHome(b *Bee, env *Env) {
	home := HomePoint(env)
	b.Path.Set(home, env.Hive.Route(b.Pos, home, clearance(env)))
}

// replan reroutes a bee whose last leg has become blocked, for example
// after a wall pushed it off its line.
func replan(b *Bee, env *Env) {
	if !b.Path.Valid || len(b.Path.Waypoints) > 0 || !env.Hive.Enabled() {
		return
	}
	if env.Hive.Blocked(b.Pos, b.Path.Final) {
		b.Path.Set(b.Path.Final, env.Hive.Route(b.Pos, b.Path.Final, clearance(env)))
	}
}

func steer(b *Bee, env *Env, dt float64) {
	switch b.Mode {
	case ModeForaging, ModeUnloading:
		b.Vel = mgl64.Vec2{}
	case ModeIdle:
		RandomWalk(b, &env.Params.Motion, env.Rng, dt)
	case ModeOutbound, ModeReturning, ModeEntering:
		if !b.Path.Valid {
			RandomWalk(b, &env.Params.Motion, env.Rng, dt)
			return
		}
		tol := env.Params.Bee.ArriveTolWorld
		for {
			wp, ok := b.Path.Waypoint()
			if !ok || wp.Sub(b.Pos).Len() > tol {
				break
			}
			b.Path.advance()
		}
		Seek(b, b.Path.Next(), &env.Params.Bee, dt)
	}
}

func integrate(b *Bee, env *Env, dt float64) {
	prev := b.Pos
	b.Pos = b.Pos.Add(b.Vel.Mul(dt))
	Bounce(b, env.Params.WorldWidthPx, env.Params.WorldHeightPx, env.Params.Motion.BounceMargin)
	env.Hive.Resolve(&b.Pos, &b.Vel, prev, b.Radius)
	b.InsideHive = env.Hive.Contains(b.Pos)
}

func drain(b *Bee, bp *config.BeeParams, dt float64) {
	b.Energy = max(0, b.Energy-bp.EnergyDrainPerS*dt)
}

func arrived(b *Bee, target mgl64.Vec2, env *Env) bool {
	return target.Sub(b.Pos).Len() <= env.Params.Bee.ArriveTolWorld
}

func startForaging(b *Bee, idx int) {
	b.Mode = ModeForaging
	b.Intent = IntentHarvest
	b.TargetTile = idx
	b.Vel = mgl64.Vec2{}
	b.Path.Clear()
}

func startUnloading(b *Bee) {
	b.Mode = ModeUnloading
	b.Intent = IntentUnload
	b.Vel = mgl64.Vec2{}
	b.Path.Clear()
}

func act(b *Bee, env *Env, dt float64, note *Note) {
	bp := &env.Params.Bee

	switch b.Mode {
	case ModeIdle:
		b.Energy = min(1, b.Energy+bp.RestRecoveryPerS*dt)

	case ModeOutbound:
		drain(b, bp, dt)
		switch b.Intent {
		case IntentFindPatch:
			if t := env.World.At(b.TargetTile); t != nil && arrived(b, mgl64.Vec2{t.CenterX, t.CenterY}, env) {
				startForaging(b, b.TargetTile)
			}
		case IntentExplore:
			if b.Path.Valid {
				if arrived(b, b.Path.Final, env) {
					b.Path.Clear()
				}
				return
			}
			_, idx, ok := env.World.Pick(b.Pos.X(), b.Pos.Y())
			if !ok {
				return
			}
			t := &env.World.Tiles[idx]
			if t.Terrain != world.TerrainFlowers || t.NectarStock < MinPatchStock {
				return
			}
			if env.Colony.Remember(idx) {
				*note = Note{Kind: NotePatchDiscovered, Tile: idx, Amount: t.NectarStock}
			}
			startForaging(b, idx)
		case IntentHarvest, IntentReturnHome, IntentUnload, IntentRest:
		}

	case ModeForaging:
		drain(b, bp, dt)
		t := env.World.At(b.TargetTile)
		want := economy.HarvestRequest(t, b.HarvestRate, b.Capacity-b.Load, dt)
		got := env.Ledger.Extract(env.World, b.TargetTile, want)
		b.Load += got
		env.Colony.RecordHarvest(got)
		if got > 0 && t.NectarStock <= 0 {
			*note = Note{Kind: NotePatchDepleted, Tile: b.TargetTile}
		}
		switch {
		case b.Load >= b.Capacity-loadEps:
			b.Load = min(b.Load, b.Capacity)
			goHome(b, env)
		case t == nil || t.NectarStock < MinPatchStock:
			if b.Load > 0 {
				goHome(b, env)
			} else {
				choosePatch(b, env)
			}
		}

	case ModeReturning:
		drain(b, bp, dt)
		if env.Hive.Enabled() {
			if b.InsideHive {
				b.Mode = ModeEntering
			}
		} else if arrived(b, b.Path.Final, env) {
			startUnloading(b)
		}

	case ModeEntering:
		drain(b, bp, dt)
		if arrived(b, b.Path.Final, env) {
			startUnloading(b)
		}

	case ModeUnloading:
		carried := b.Load > loadEps
		amount := min(b.Load, bp.UnloadRateUlps*dt)
		b.Load -= amount
		env.Colony.Deposit(amount)
		if b.Load > loadEps {
			return
		}
		b.Load = 0
		if carried {
			b.Trips++
			env.Colony.Trips++
			*note = Note{Kind: NoteTripCompleted, Tile: NoTile, Amount: amount}
		}
		b.Mode = ModeIdle
		b.Intent = IntentRest
		if b.Role.Forages() && b.Energy >= bp.DepartEnergy {
			choosePatch(b, env)
		}
	}
}
