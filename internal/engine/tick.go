// Package engine provides the colony simulation and the fixed-step loop
// that drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/beehive/internal/config"
)

// DefaultFrameInterval is the real-time loop's wake-up period.
const DefaultFrameInterval = time.Second / 60

// Engine drives a Simulation forward in fixed steps. All access to the
// simulation goes through the engine's lock.
type Engine struct {
	mu  sync.Mutex
	sim *Simulation

	accumulator float64 // unsimulated seconds
	nextReport  float64 // sim time of the next report
	paused      bool
	stepOnce    bool

	Speed    float64       // Multiplier: 1.0 = real-time
	Interval time.Duration // Real-time loop frame interval

	// Callbacks run with the lock held; they must not call back into the
	// engine.
	OnTick   func(s *Simulation)                 // After every tick
	OnReport func(s *Simulation, stats SimStats) // Every sim.report_every_s simulated seconds
}

// NewEngine creates an engine around sim with default settings.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		sim:        sim,
		Speed:      1.0,
		Interval:   DefaultFrameInterval,
		nextReport: sim.Params.Sim.ReportEveryS,
	}
}

// Advance feeds frameDt real seconds into the accumulator and runs as many
// fixed ticks as it covers. Time beyond sim.max_accumulator_s is dropped.
// A pending single step runs even while paused. Returns the ticks run.
func (e *Engine) Advance(frameDt float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	dt := e.sim.Params.Sim.FixedDT
	if e.stepOnce {
		e.stepOnce = false
		e.step(dt)
		return 1
	}
	if e.paused || frameDt <= 0 {
		return 0
	}

	e.accumulator += frameDt * e.Speed
	if limit := e.sim.Params.Sim.MaxAccumulatorS; e.accumulator > limit {
		e.accumulator = limit
	}
	n := 0
	for e.accumulator >= dt {
		e.step(dt)
		e.accumulator -= dt
		n++
	}
	return n
}

// RunTicks runs n fixed ticks immediately, ignoring pause and speed.
func (e *Engine) RunTicks(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dt := e.sim.Params.Sim.FixedDT
	for i := 0; i < n; i++ {
		e.step(dt)
	}
}

// Run advances the simulation in real time until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("simulation engine started", "tick", e.LastTick(), "speed", e.Speed, "interval", interval)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "tick", e.LastTick())
			return nil
		case now := <-ticker.C:
			e.Advance(now.Sub(last).Seconds())
			last = now
		}
	}
}

// step advances the simulation by one tick and fires the callbacks.
func (e *Engine) step(dt float64) {
	s := e.sim
	s.Tick(dt)

	if e.OnTick != nil {
		e.OnTick(s)
	}

	every := s.Params.Sim.ReportEveryS
	if every > 0 && s.Time >= e.nextReport {
		for e.nextReport <= s.Time {
			e.nextReport += every
		}
		stats := s.Report()
		if e.OnReport != nil {
			e.OnReport(s, stats)
		}
	}
}

// SetPaused pauses or resumes the loop. Pausing drops accumulated time.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = paused
	e.accumulator = 0
	slog.Info("simulation paused", "paused", paused, "tick", e.sim.LastTick)
}

// Paused reports whether the loop is paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Step requests a single tick on the next Advance.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepOnce = true
}

// SetSpeed changes the time multiplier.
func (e *Engine) SetSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("%w: speed (%.2f) must be > 0", config.ErrInvalid, speed)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Speed = speed
	return nil
}

// Apply applies new params to the simulation. A reinit restarts the clock.
func (e *Engine) Apply(p config.Params) (ApplyMode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	mode, err := e.sim.Apply(p)
	if err != nil {
		return mode, err
	}
	if mode == ApplyReinit {
		e.accumulator = 0
		e.nextReport = e.sim.Params.Sim.ReportEveryS
	}
	slog.Info("params applied", "mode", mode, "tick", e.sim.LastTick)
	return mode, nil
}

// Do runs fn with exclusive access to the simulation.
func (e *Engine) Do(fn func(s *Simulation)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sim)
}

// View snapshots the simulation for rendering.
func (e *Engine) View(selected int) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.BuildView(selected)
}

// Params returns a copy of the active parameters.
func (e *Engine) Params() config.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.Params
}

// Stats returns fresh colony stats.
func (e *Engine) Stats() SimStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sim.updateStats()
	return e.sim.Stats
}

// LastTick returns the number of ticks since the last init.
func (e *Engine) LastTick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.LastTick
}

// SimTime formats simulated seconds as "Day d, hh:mm:ss".
func SimTime(seconds float64) string {
	total := uint64(seconds)
	secs := total % 60
	mins := (total / 60) % 60
	hours := (total / 3600) % 24
	days := total/86400 + 1
	return fmt.Sprintf("Day %d, %02d:%02d:%02d", days, hours, mins, secs)
}
