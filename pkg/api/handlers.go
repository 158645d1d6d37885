package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/threestd/threes/pkg/episode"
)

// Monitor collects training summaries and fans them out to WebSocket clients.
// Publish is called from the training loop; the handlers run on server goroutines.
type Monitor struct {
	runID   string
	version string
	started time.Time

	mu      sync.RWMutex
	history []episode.Summary
	clients map[*WSClient]struct{}
	streams map[chan episode.Summary]struct{}
}

// NewMonitor creates a monitor for a new training run.
func NewMonitor(version string) *Monitor {
	return &Monitor{
		runID:   uuid.New().String(),
		version: version,
		started: time.Now(),
		clients: make(map[*WSClient]struct{}),
		streams: make(map[chan episode.Summary]struct{}),
	}
}

// RunID returns the identifier of the training run.
func (m *Monitor) RunID() string { return m.runID }

// Publish records a summary and pushes it to every connected client.
// Slow clients drop messages rather than stall training.
func (m *Monitor) Publish(s episode.Summary) {
	m.mu.Lock()
	m.history = append(m.history, s)
	clients := make([]*WSClient, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	for ch := range m.streams {
		select {
		case ch <- s:
		default:
		}
	}
	m.mu.Unlock()

	msg := WSResponse{Type: "summary", ID: uuid.New().String(), Payload: s}
	for _, c := range clients {
		c.trySend(msg)
	}
}

// History returns a copy of every published summary.
func (m *Monitor) History() []episode.Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]episode.Summary(nil), m.history...)
}

func (m *Monitor) latest() *episode.Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return nil
	}
	s := m.history[len(m.history)-1]
	return &s
}

func (m *Monitor) register(c *WSClient) {
	m.mu.Lock()
	m.clients[c] = struct{}{}
	m.mu.Unlock()
}

func (m *Monitor) unregister(c *WSClient) {
	m.mu.Lock()
	delete(m.clients, c)
	m.mu.Unlock()
}

// subscribe returns a channel receiving each published summary and a
// function that detaches it.
func (m *Monitor) subscribe() (<-chan episode.Summary, func()) {
	ch := make(chan episode.Summary, 16)
	m.mu.Lock()
	m.streams[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		delete(m.streams, ch)
		m.mu.Unlock()
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// Health handles GET /api/health
func (m *Monitor) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: m.version,
		RunID:   m.runID,
		Uptime:  time.Since(m.started).Seconds(),
	}
	m.mu.RLock()
	if n := len(m.history); n > 0 {
		resp.Episodes = m.history[n-1].Index
	}
	resp.Clients = len(m.clients) + len(m.streams)
	m.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /api/stats
func (m *Monitor) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}
	resp := StatsResponse{RunID: m.runID, Latest: m.latest()}
	if r.URL.Query().Get("history") != "" {
		resp.History = m.History()
	}
	writeJSON(w, http.StatusOK, resp)
}
