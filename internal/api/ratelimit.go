package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Per-client limits. Control posts are counted in fixed windows; stream
// sockets are counted while open.
const (
	controlPostsPerWindow = 120
	controlWindow         = time.Minute
	streamsPerClient      = 2
)

// clientLimits meters one client address against both the control plane
// and the stream.
type clientLimits struct {
	mu      sync.Mutex
	usage   map[string]*clientUsage
	posts   int
	window  time.Duration
	streams int
	now     func() time.Time
}

type clientUsage struct {
	windowStart time.Time
	posts       int
	streams     int
}

func newClientLimits(posts int, window time.Duration, streams int) *clientLimits {
	return &clientLimits{
		usage:   make(map[string]*clientUsage),
		posts:   posts,
		window:  window,
		streams: streams,
		now:     time.Now,
	}
}

// admitPost counts one control request. When the window is used up it
// returns false and the time left until the window rolls over.
func (l *clientLimits) admitPost(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	u := l.lookupLocked(client, now)
	if elapsed := now.Sub(u.windowStart); elapsed >= l.window {
		u.windowStart, u.posts = now, 0
	}
	if u.posts >= l.posts {
		return false, u.windowStart.Add(l.window).Sub(now)
	}
	u.posts++
	return true, 0
}

// openStream claims a stream slot for client. Callers that get true must
// call closeStream when the socket ends.
func (l *clientLimits) openStream(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.lookupLocked(client, l.now())
	if u.streams >= l.streams {
		return false
	}
	u.streams++
	return true
}

func (l *clientLimits) closeStream(client string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if u, ok := l.usage[client]; ok && u.streams > 0 {
		u.streams--
	}
}

// lookupLocked returns client's usage, creating it and pruning idle
// clients on first sight.
func (l *clientLimits) lookupLocked(client string, now time.Time) *clientUsage {
	if u, ok := l.usage[client]; ok {
		return u
	}
	for addr, u := range l.usage {
		if u.streams == 0 && now.Sub(u.windowStart) > 2*l.window {
			delete(l.usage, addr)
		}
	}
	u := &clientUsage{windowStart: now}
	l.usage[client] = u
	return u
}

// clientAddr returns the first X-Forwarded-For hop, else the remote host.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitControl answers 429 with Retry-After once a client spends its
// control posts for the window.
func limitControl(l *clientLimits, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.admitPost(clientAddr(r))
		if !ok {
			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
