// Package persistence provides a SQLite journal of simulation runs: one row
// per run, periodic colony samples, and the event log.
package persistence

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/engine"
)

// DB wraps a SQLite connection for the run journal.
type DB struct {
	conn *sqlx.DB
}

// Run is one journaled simulation run.
type Run struct {
	ID         string         `db:"id" json:"id"`
	StartedAt  string         `db:"started_at" json:"started_at"`
	EndedAt    sql.NullString `db:"ended_at" json:"-"`
	Seed       int64          `db:"seed" json:"seed"`
	BeeCount   int            `db:"bee_count" json:"bee_count"`
	FinalTick  int64          `db:"final_tick" json:"final_tick"`
	ParamsYAML string         `db:"params_yaml" json:"params_yaml"`
}

// Sample is one periodic colony snapshot.
type Sample struct {
	RunID        string  `db:"run_id" json:"run_id"`
	Tick         int64   `db:"tick" json:"tick"`
	Time         float64 `db:"time" json:"time"`
	Bees         int     `db:"bees" json:"bees"`
	InsideHive   int     `db:"inside_hive" json:"inside_hive"`
	AvgEnergy    float64 `db:"avg_energy" json:"avg_energy"`
	Carried      float64 `db:"carried" json:"carried_uL"`
	Reserve      float64 `db:"reserve" json:"reserve_uL"`
	Harvested    float64 `db:"harvested" json:"harvested_uL"`
	Trips        int     `db:"trips" json:"trips"`
	TotalStock   float64 `db:"total_stock" json:"total_stock"`
	KnownPatches int     `db:"known_patches" json:"known_patches"`
	Depleted     int     `db:"depleted" json:"depleted"`
	ModesJSON    string  `db:"modes_json" json:"modes_json"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		seed INTEGER NOT NULL,
		bee_count INTEGER NOT NULL,
		final_tick INTEGER NOT NULL DEFAULT 0,
		params_yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		time REAL NOT NULL,
		bees INTEGER NOT NULL,
		inside_hive INTEGER NOT NULL,
		avg_energy REAL NOT NULL,
		carried REAL NOT NULL,
		reserve REAL NOT NULL,
		harvested REAL NOT NULL,
		trips INTEGER NOT NULL,
		total_stock REAL NOT NULL,
		known_patches INTEGER NOT NULL,
		depleted INTEGER NOT NULL,
		modes_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		time REAL NOT NULL,
		category TEXT NOT NULL,
		bee INTEGER NOT NULL,
		tile INTEGER NOT NULL,
		amount REAL NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_run ON samples(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records a new run with its parameters and returns it.
func (db *DB) StartRun(p config.Params) (Run, error) {
	var buf bytes.Buffer
	if err := config.Dump(&buf, p); err != nil {
		return Run{}, fmt.Errorf("encode params: %w", err)
	}
	run := Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
		Seed:       int64(p.RNGSeed),
		BeeCount:   p.BeeCount,
		ParamsYAML: buf.String(),
	}
	_, err := db.conn.NamedExec(`INSERT INTO runs
		(id, started_at, seed, bee_count, final_tick, params_yaml)
		VALUES (:id, :started_at, :seed, :bee_count, :final_tick, :params_yaml)`, &run)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run started", "run", run.ID, "seed", p.RNGSeed, "bees", p.BeeCount)
	return run, nil
}

// EndRun stamps a run with its end time and final tick.
func (db *DB) EndRun(runID string, finalTick uint64) error {
	res, err := db.conn.Exec("UPDATE runs SET ended_at = ?, final_tick = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), int64(finalTick), runID)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// SaveSample appends one colony snapshot to a run.
func (db *DB) SaveSample(runID string, st engine.SimStats) error {
	modes, err := json.Marshal(st.Modes)
	if err != nil {
		return err
	}
	_, err = db.conn.NamedExec(`INSERT INTO samples
		(run_id, tick, time, bees, inside_hive, avg_energy, carried, reserve, harvested,
		 trips, total_stock, known_patches, depleted, modes_json)
		VALUES (:run_id, :tick, :time, :bees, :inside_hive, :avg_energy, :carried, :reserve,
		 :harvested, :trips, :total_stock, :known_patches, :depleted, :modes_json)`,
		&Sample{
			RunID:        runID,
			Tick:         int64(st.Tick),
			Time:         st.Time,
			Bees:         st.Bees,
			InsideHive:   st.InsideHive,
			AvgEnergy:    st.AvgEnergy,
			Carried:      st.Carried,
			Reserve:      st.Reserve,
			Harvested:    st.Harvested,
			Trips:        st.Trips,
			TotalStock:   st.TotalStock,
			KnownPatches: st.KnownPatches,
			Depleted:     st.DepletedTiles,
			ModesJSON:    string(modes),
		})
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// SaveEvents appends events to a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(run_id, seq, tick, time, category, bee, tile, amount, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.Exec(runID, int64(e.Seq), int64(e.Tick), e.Time, e.Category,
			e.Bee, e.Tile, e.Amount, e.Description)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.Seq, err)
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// Runs lists journaled runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY started_at DESC, rowid DESC")
	return runs, err
}

// Samples returns a run's samples in tick order.
func (db *DB) Samples(runID string) ([]Sample, error) {
	var samples []Sample
	err := db.conn.Select(&samples, `SELECT run_id, tick, time, bees, inside_hive, avg_energy,
		carried, reserve, harvested, trips, total_stock, known_patches, depleted, modes_json
		FROM samples WHERE run_id = ? ORDER BY tick`, runID)
	return samples, err
}

// RecentEvents returns a run's most recent events, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT seq, tick, time, category, bee, tile, amount, description
		FROM events WHERE run_id = ? ORDER BY seq DESC LIMIT ?`,
		runID, limit,
	)
	return events, err
}
