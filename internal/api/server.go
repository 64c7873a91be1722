// Package api provides the HTTP API for observing and steering the colony.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/talgya/beehive/internal/config"
	"github.com/talgya/beehive/internal/engine"
	"github.com/talgya/beehive/internal/persistence"
	"github.com/talgya/beehive/internal/world"
)

const (
	maxStreamConns    = 4
	maxParamsBody     = 1 << 20
	defaultStreamRate = 100 * time.Millisecond
	shutdownTimeout   = 5 * time.Second
)

// Server serves the colony over HTTP.
type Server struct {
	Eng       *engine.Engine
	DB        *persistence.DB // Optional run journal
	RunID     string          // Journaled run, if any
	Addr      string
	AdminKey  string        // Bearer token for POST endpoints. Empty = POST disabled.
	Every     time.Duration // Stream frame interval
	PongWait  time.Duration // Stream read deadline, extended by each pong
	AccessLog io.Writer     // Combined-format access log, if set

	streamConns int32
	limits      *clientLimits
	upgrader    websocket.Upgrader
}

// NewServer creates a server for eng listening on addr.
func NewServer(eng *engine.Engine, addr, adminKey string) *Server {
	return &Server{
		Eng:      eng,
		Addr:     addr,
		AdminKey: adminKey,
		Every:    defaultStreamRate,
		PongWait: defaultPongWait,
		limits:   newClientLimits(controlPostsPerWindow, controlWindow, streamsPerClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the API router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Public endpoints (GET, read-only).
	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	v1.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	v1.HandleFunc("/params", s.handleGetParams).Methods(http.MethodGet)
	v1.HandleFunc("/queen", s.handleQueen).Methods(http.MethodGet)
	v1.HandleFunc("/bees/near", s.handleBeeNear).Methods(http.MethodGet)
	v1.HandleFunc("/bees/{index:[0-9]+}", s.handleBee).Methods(http.MethodGet)
	v1.HandleFunc("/tiles/pick", s.handleTilePick).Methods(http.MethodGet)
	v1.HandleFunc("/tiles/{index:[0-9]+}", s.handleTile).Methods(http.MethodGet)
	v1.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/samples", s.handleRunSamples).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/events", s.handleRunEvents).Methods(http.MethodGet)
	v1.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	// Admin endpoints (POST, require bearer token).
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return limitControl(s.limits, s.adminOnly(h))
	}
	v1.HandleFunc("/params", admin(s.handleApplyParams)).Methods(http.MethodPost)
	v1.HandleFunc("/pause", admin(s.handlePause)).Methods(http.MethodPost)
	v1.HandleFunc("/step", admin(s.handleStep)).Methods(http.MethodPost)
	v1.HandleFunc("/speed", admin(s.handleSpeed)).Methods(http.MethodPost)

	var h http.Handler = corsMiddleware(r)
	if s.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(s.AccessLog, h)
	}
	recoveryLog := slog.NewLogLogger(slog.Default().Handler(), slog.LevelError)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLog))(h)
}

// ListenAndServe serves the API until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		slog.Info("HTTP API stopped")
		return nil
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		status = map[string]any{
			"name":     sim.Params.WindowTitle,
			"tick":     sim.LastTick,
			"time":     sim.Time,
			"sim_time": engine.SimTime(sim.Time),
			"bees":     len(sim.Bees),
			"tiles":    sim.World.Count(),
			"hive":     sim.Hive.Enabled(),
			"reserve":  sim.Colony.Reserve,
			"trips":    sim.Colony.Trips,
			"seed":     sim.Params.RNGSeed,
		}
	})
	status["paused"] = s.Eng.Paused()
	status["run_id"] = s.RunID
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Eng.Stats())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	events := []engine.Event{}
	s.Eng.Do(func(sim *engine.Simulation) {
		for _, e := range sim.Events {
			if category == "" || e.Category == category {
				events = append(events, e)
			}
		}
	})

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, http.StatusOK, events[start:])
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	selected := engine.NoSelection
	if v := r.URL.Query().Get("selected"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "selected must be an integer")
			return
		}
		selected = n
	}
	writeJSON(w, http.StatusOK, s.Eng.View(selected))
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	if err := config.Dump(w, s.Eng.Params()); err != nil {
		slog.Warn("params dump failed", "error", err)
	}
}

func (s *Server) handleQueen(w http.ResponseWriter, r *http.Request) {
	var (
		info engine.BeeDebugInfo
		ok   bool
	)
	s.Eng.Do(func(sim *engine.Simulation) { info, ok = sim.Queen() })
	if !ok {
		writeError(w, http.StatusNotFound, "no queen")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleBee(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bee index")
		return
	}
	var (
		info engine.BeeDebugInfo
		ok   bool
	)
	s.Eng.Do(func(sim *engine.Simulation) { info, ok = sim.GetBeeInfo(idx) })
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("bee %d not found", idx))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleBeeNear(w http.ResponseWriter, r *http.Request) {
	x, y, err := pointQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	radius := 18.0
	if v := r.URL.Query().Get("r"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, "r must be a positive number")
			return
		}
	}

	var (
		info engine.BeeDebugInfo
		ok   bool
	)
	s.Eng.Do(func(sim *engine.Simulation) {
		var idx int
		if idx, ok = sim.FindBeeNear(x, y, radius); ok {
			info, ok = sim.GetBeeInfo(idx)
		}
	})
	if !ok {
		writeError(w, http.StatusNotFound, "no bee near point")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type tileResponse struct {
	Index int        `json:"index"`
	Tile  world.Tile `json:"tile"`
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tile index")
		return
	}
	var (
		tile world.Tile
		ok   bool
	)
	s.Eng.Do(func(sim *engine.Simulation) { tile, ok = sim.Tile(idx) })
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("tile %d not found", idx))
		return
	}
	writeJSON(w, http.StatusOK, tileResponse{Index: idx, Tile: tile})
}

func (s *Server) handleTilePick(w http.ResponseWriter, r *http.Request) {
	x, y, err := pointQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var (
		idx  int
		tile world.Tile
		ok   bool
	)
	s.Eng.Do(func(sim *engine.Simulation) { idx, tile, ok = sim.PickTile(x, y) })
	if !ok {
		writeError(w, http.StatusNotFound, "no tile at point")
		return
	}
	writeJSON(w, http.StatusOK, tileResponse{Index: idx, Tile: tile})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "no run journal configured")
		return
	}
	runs, err := s.DB.Runs()
	if err != nil {
		slog.Warn("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	resp := map[string]any{"runs": runs}
	if last, err := s.DB.GetMeta("last_run"); err == nil {
		resp["last_run"] = last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRunSamples(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "no run journal configured")
		return
	}
	samples, err := s.DB.Samples(mux.Vars(r)["id"])
	if err != nil {
		slog.Warn("list samples failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list samples failed")
		return
	}
	if samples == nil {
		samples = []persistence.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "no run journal configured")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 1000)
	}
	events, err := s.DB.RecentEvents(mux.Vars(r)["id"], limit)
	if err != nil {
		slog.Warn("list events failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list events failed")
		return
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleApplyParams(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxParamsBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	next, err := config.Merge(s.Eng.Params(), raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cur := s.Eng.Params(); !config.Dirty(&cur, &next) {
		writeJSON(w, http.StatusOK, map[string]any{"applied": "unchanged", "tick": s.Eng.LastTick()})
		return
	}
	mode, err := s.Eng.Apply(next)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": mode.String(), "tick": s.Eng.LastTick()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused *bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	paused := !s.Eng.Paused()
	if req.Paused != nil {
		paused = *req.Paused
	}
	s.Eng.SetPaused(paused)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	s.Eng.Step()
	writeJSON(w, http.StatusAccepted, map[string]uint64{"tick": s.Eng.LastTick()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Speed > 1000 {
		writeError(w, http.StatusBadRequest, "speed must be 0-1000")
		return
	}
	if err := s.Eng.SetSpeed(req.Speed); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, http.StatusOK, map[string]float64{"speed": req.Speed})
}

func pointQuery(r *http.Request) (x, y float64, err error) {
	q := r.URL.Query()
	x, err = strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		return 0, 0, errors.New("x must be a number")
	}
	y, err = strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		return 0, 0, errors.New("y must be a number")
	}
	return x, y, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
