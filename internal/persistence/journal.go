package persistence

import (
	"log/slog"
	"sync"

	"github.com/talgya/beehive/internal/engine"
)

// journalQueue bounds the reports waiting to be written.
const journalQueue = 64

type report struct {
	stats  engine.SimStats
	events []engine.Event
}

// Journal writes engine reports for one run on a background goroutine so
// the simulation loop never waits on the database.
type Journal struct {
	db    *DB
	runID string

	queue   chan report
	done    chan struct{}
	lastSeq uint64

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewJournal starts a writer for runID.
func NewJournal(db *DB, runID string) *Journal {
	j := &Journal{
		db:    db,
		runID: runID,
		queue: make(chan report, journalQueue),
		done:  make(chan struct{}),
	}
	go j.loop()
	return j
}

// RunID returns the journaled run's ID.
func (j *Journal) RunID() string {
	return j.runID
}

// OnReport matches engine.Engine.OnReport. It copies the stats and any
// events since the previous report and queues them; a full queue drops the
// report.
func (j *Journal) OnReport(s *engine.Simulation, st engine.SimStats) {
	events := s.EventsSince(j.lastSeq)
	if n := len(events); n > 0 {
		j.lastSeq = events[n-1].Seq
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.queue <- report{stats: st, events: events}:
	default:
		j.dropped++
	}
}

func (j *Journal) loop() {
	defer close(j.done)
	for r := range j.queue {
		if err := j.db.SaveSample(j.runID, r.stats); err != nil {
			slog.Warn("journal sample failed", "run", j.runID, "error", err)
		}
		if err := j.db.SaveEvents(j.runID, r.events); err != nil {
			slog.Warn("journal events failed", "run", j.runID, "error", err)
		}
	}
}

// Close flushes queued reports and marks the run finished at finalTick.
func (j *Journal) Close(finalTick uint64) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	dropped := j.dropped
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	if dropped > 0 {
		slog.Warn("journal dropped reports", "run", j.runID, "dropped", dropped)
	}
	return j.db.EndRun(j.runID, finalTick)
}
