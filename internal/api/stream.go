package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/beehive/internal/engine"
)

const (
	streamWriteWait = 5 * time.Second
	defaultPongWait = 60 * time.Second
)

// streamControl is the message a stream client sends to change what it
// watches.
type streamControl struct {
	Selected *int `json:"selected"`
}

// handleStream upgrades to a websocket and pushes a view every s.Every.
// Clients may send {"selected": n} to follow a bee's path. The server pings
// well inside PongWait so a paused colony, which sends no frames, keeps
// its watchers.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	client := clientAddr(r)
	if !s.limits.openStream(client) {
		http.Error(w, "too many streams from this client", http.StatusTooManyRequests)
		return
	}
	defer s.limits.closeStream(client)

	current := atomic.AddInt32(&s.streamConns, 1)
	if current > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.streamConns, -1)

	var selected atomic.Int64
	selected.Store(engine.NoSelection)
	if v := r.URL.Query().Get("selected"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			selected.Store(int64(n))
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pongWait := s.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	alive := func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = alive("")
	conn.SetPongHandler(alive)

	// Reader loop: selection changes, pongs, and noticing the client going away.
	go func() {
		defer cancel()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = alive("")
			var ctl streamControl
			if err := json.Unmarshal(msg, &ctl); err != nil || ctl.Selected == nil {
				continue
			}
			selected.Store(int64(*ctl.Selected))
		}
	}()

	every := s.Every
	if every <= 0 {
		every = defaultStreamRate
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	ping := time.NewTicker(pongWait * 9 / 10)
	defer ping.Stop()

	slog.Info("stream client connected", "remote", r.RemoteAddr)
	var lastTick uint64
	sent := false
	for {
		select {
		case <-ctx.Done():
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			v := s.Eng.View(int(selected.Load()))
			if sent && v.Tick == lastTick && v.Selected == engine.NoSelection {
				continue
			}
			b, err := json.Marshal(v)
			if err != nil {
				slog.Warn("stream encode failed", "error", err)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
			lastTick, sent = v.Tick, true
		}
	}
}
