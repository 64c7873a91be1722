// Command beesim runs the hex-world bee colony simulation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/ttacon/chalk"
	"github.com/urfave/cli"

	"github.com/talgya/beehive/internal/api"
	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/engine"
	"github.com/talgya/beehive/internal/persistence"
	"github.com/talgya/beehive/internal/recording"
)

// headlessChunk is how many ticks a headless run takes between
// cancellation checks.
const headlessChunk = 600

var terminal = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func main() {
	app := makeapp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, paint(chalk.Red, err.Error()))
		os.Exit(1)
	}
}

func makeapp() *cli.App {
	app := cli.NewApp()
	app.Name = "beesim"
	app.Usage = "hex-world bee colony simulation"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
	}
	app.Before = func(c *cli.Context) error {
		return setupLogging(c.GlobalString("log-level"))
	}

	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "Run the simulation",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "params", Usage: "YAML parameter file; defaults when empty"},
				cli.Uint64Flag{Name: "seed", Usage: "Override rng_seed"},
				cli.IntFlag{Name: "ticks", Usage: "Run this many ticks as fast as possible, then exit"},
				cli.DurationFlag{Name: "duration", Usage: "Stop a real-time run after this long"},
				cli.Float64Flag{Name: "speed", Value: 1, Usage: "Real-time speed multiplier"},
				cli.StringFlag{Name: "db", Usage: "SQLite run journal path"},
				cli.StringFlag{Name: "record", Usage: "Write a zstd JSONL recording to this file"},
				cli.IntFlag{Name: "record-every", Value: 12, Usage: "Ticks between recorded frames"},
				cli.StringFlag{Name: "addr", Usage: "Serve the HTTP API on this address, e.g. :8080"},
				cli.StringFlag{Name: "admin-key", EnvVar: "BEESIM_ADMIN_KEY", Usage: "Bearer token for control endpoints"},
				cli.BoolFlag{Name: "access-log", Usage: "Write an HTTP access log to stdout"},
			},
			Action: runAction,
		},
		{
			Name:      "validate",
			Usage:     "Check a parameter file",
			ArgsUsage: "<params.yaml>",
			Action:    validateAction,
		},
		{
			Name:   "defaults",
			Usage:  "Print the default parameters as YAML",
			Action: func(c *cli.Context) error { return config.Dump(os.Stdout, config.Defaults()) },
		},
		{
			Name:      "replay",
			Usage:     "Summarize a recording",
			ArgsUsage: "<recording.jsonl.zst>",
			Action:    replayAction,
		},
	}
	return app
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func paint(c chalk.Color, s string) string {
	if !terminal {
		return s
	}
	return c.Color(s)
}

func loadParams(c *cli.Context) (config.Params, error) {
	p, err := config.Load(c.String("params"))
	if err != nil {
		return p, err
	}
	if c.IsSet("seed") {
		p.RNGSeed = c.Uint64("seed")
	}
	return p, nil
}

func runAction(c *cli.Context) error {
	p, err := loadParams(c)
	if err != nil {
		return err
	}
	sim, err := engine.NewSimulation(p)
	if err != nil {
		return err
	}
	eng := engine.NewEngine(sim)
	if err := eng.SetSpeed(c.Float64("speed")); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	// ── Run journal ──────────────────────────────────────────────────
	var (
		db      *persistence.DB
		journal *persistence.Journal
	)
	if path := c.String("db"); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		db, err = persistence.Open(path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()
		run, err := db.StartRun(p)
		if err != nil {
			return err
		}
		if err := db.SaveMeta("last_run", run.ID); err != nil {
			slog.Warn("save meta failed", "error", err)
		}
		journal = persistence.NewJournal(db, run.ID)
		defer func() {
			if err := journal.Close(eng.LastTick()); err != nil {
				slog.Error("close journal failed", "error", err)
			}
		}()
		eng.OnReport = journal.OnReport
		slog.Info("journal opened", "path", path, "run", run.ID)
	}

	// ── Recording ────────────────────────────────────────────────────
	var rec *recording.Writer
	if path := c.String("record"); path != "" {
		every := c.Int("record-every")
		if every < 1 {
			return errors.New("--record-every must be >= 1")
		}
		rec, err = recording.Create(path, p, every)
		if err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		eng.OnTick = func(s *engine.Simulation) {
			if s.LastTick%uint64(every) != 0 {
				return
			}
			v := s.BuildView(engine.NoSelection)
			if err := rec.WriteFrame(&v); err != nil {
				slog.Warn("recording frame failed", "tick", s.LastTick, "error", err)
			}
		}
		slog.Info("recording", "path", path, "every_ticks", every)
	}

	// ── HTTP API ─────────────────────────────────────────────────────
	serverDone := make(chan error, 1)
	if addr := c.String("addr"); addr != "" {
		srv := api.NewServer(eng, addr, c.String("admin-key"))
		if journal != nil {
			srv.DB, srv.RunID = db, journal.RunID()
		}
		if c.Bool("access-log") {
			srv.AccessLog = os.Stdout
		}
		if srv.AdminKey == "" {
			slog.Warn("BEESIM_ADMIN_KEY not set, control endpoints disabled")
		}
		go func() { serverDone <- srv.ListenAndServe(ctx) }()
		fmt.Printf("API: http://localhost%s/api/v1/status\n", addr)
	} else {
		serverDone <- nil
	}

	// ── Start ────────────────────────────────────────────────────────
	st := eng.Stats()
	fmt.Printf("%s %s bees over %s flower patches.\n",
		paint(chalk.Yellow, "Colony is alive:"),
		humanize.Comma(int64(st.Bees)), humanize.Comma(int64(st.Patches)))

	started := time.Now()
	if n := c.Int("ticks"); n > 0 {
		runHeadless(ctx, eng, n)
		stop()
	} else {
		if err := eng.Run(ctx); err != nil {
			return err
		}
	}
	elapsed := time.Since(started)

	if err := <-serverDone; err != nil {
		slog.Error("api server failed", "error", err)
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			slog.Error("close recording failed", "error", err)
		}
		slog.Info("recording closed", "frames", rec.Frames())
	}
	printSummary(eng.Stats(), elapsed)
	return nil
}

func runHeadless(ctx context.Context, eng *engine.Engine, ticks int) {
	for done := 0; done < ticks; done += headlessChunk {
		if ctx.Err() != nil {
			slog.Info("headless run interrupted", "tick", eng.LastTick())
			return
		}
		eng.RunTicks(min(headlessChunk, ticks-done))
	}
}

func printSummary(st engine.SimStats, elapsed time.Duration) {
	fmt.Println()
	fmt.Println(paint(chalk.Green, "Simulation stopped."))
	fmt.Printf("  %-12s %s (%s ticks, %s wall)\n", "sim time", engine.SimTime(st.Time),
		humanize.Comma(int64(st.Tick)), elapsed.Round(time.Millisecond))
	fmt.Printf("  %-12s %s\n", "bees", humanize.Comma(int64(st.Bees)))
	fmt.Printf("  %-12s %s\n", "trips", humanize.Comma(int64(st.Trips)))
	fmt.Printf("  %-12s %s uL\n", "reserve", humanize.FormatFloat("#,###.#", st.Reserve))
	fmt.Printf("  %-12s %s uL\n", "harvested", humanize.FormatFloat("#,###.#", st.Harvested))
	fmt.Printf("  %-12s %d of %d\n", "patches", st.KnownPatches, st.Patches)
	if st.DepletedTiles > 0 {
		fmt.Printf("  %-12s %s\n", "depleted", paint(chalk.Red, humanize.Comma(int64(st.DepletedTiles))))
	}
}

func validateAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("usage: beesim validate <params.yaml>", 2)
	}
	p, err := config.Load(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s: %d bees, %dx%d world, cell size %.1f\n",
		paint(chalk.Green, "ok"), path, p.BeeCount, int(p.WorldWidthPx), int(p.WorldHeightPx), p.Hex.CellSize)
	return nil
}

func replayAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("usage: beesim replay <recording.jsonl.zst>", 2)
	}
	r, err := recording.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	s, err := recording.Summarize(r)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", paint(chalk.Cyan, "recording"), path)
	fmt.Printf("  %-12s %d (seed %d, %d bees)\n", "version", s.Header.Version, s.Header.Seed, s.Header.BeeCount)
	fmt.Printf("  %-12s %s every %d ticks\n", "frames", humanize.Comma(int64(s.Frames)), s.Header.EveryTicks)
	fmt.Printf("  %-12s %d .. %d (%s simulated)\n", "ticks", s.FirstTick, s.LastTick,
		(time.Duration(s.Duration * float64(time.Second))).Round(time.Millisecond))
	fmt.Printf("  %-12s %d bees, %d path lines\n", "peak", s.MaxBees, s.MaxLines)
	return nil
}
