package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/threestd/threes/pkg/episode"
)

func testSummary(index int) episode.Summary {
	return episode.Summary{
		Index:     index,
		Episodes:  10,
		MeanScore: 123,
		MaxScore:  456,
		Tiles:     []episode.TileRate{{Tile: 48, Reach: 1, Exact: 1}},
	}
}

func TestHealthHandler(t *testing.T) {
	m := NewMonitor("test-version")
	m.Publish(testSummary(200))

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	m.Health(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.Status != "ok" || health.Version != "test-version" {
		t.Errorf("Health = %+v", health)
	}
	if health.RunID != m.RunID() || health.RunID == "" {
		t.Errorf("RunID = %q, want %q", health.RunID, m.RunID())
	}
	if health.Episodes != 200 {
		t.Errorf("Episodes = %d, want 200", health.Episodes)
	}
}

func TestStatsHandler(t *testing.T) {
	m := NewMonitor("v")
	srv := httptest.NewServer(NewServer(m, DefaultConfig()).Handler())
	defer srv.Close()

	get := func(path string) StatsResponse {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		var s StatsResponse
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		return s
	}

	if s := get("/api/stats"); s.Latest != nil {
		t.Errorf("Latest = %+v before any publish", s.Latest)
	}

	m.Publish(testSummary(10))
	m.Publish(testSummary(20))

	s := get("/api/stats")
	if s.Latest == nil || s.Latest.Index != 20 {
		t.Errorf("Latest = %+v, want index 20", s.Latest)
	}
	if s.History != nil {
		t.Errorf("History included without asking: %+v", s.History)
	}
	if s := get("/api/stats?history=1"); len(s.History) != 2 || s.History[0].Index != 10 {
		t.Errorf("History = %+v", s.History)
	}
}

func dial(t *testing.T, m *Monitor) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(m.WebSocket))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}
	return ws, func() { ws.Close(); server.Close() }
}

func readResponse(t *testing.T, ws *websocket.Conn) WSResponse {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSResponse
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return resp
}

func TestWebSocketHelloAndPing(t *testing.T) {
	m := NewMonitor("1.0.0")
	ws, done := dial(t, m)
	defer done()

	if hello := readResponse(t, ws); hello.Type != "hello" || hello.ID != m.RunID() {
		t.Errorf("first message = %+v, want hello for run %s", hello, m.RunID())
	}

	if err := ws.WriteJSON(WSMessage{Type: "ping", ID: "test-ping-1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	resp := readResponse(t, ws)
	if resp.Type != "pong" || resp.ID != "test-ping-1" {
		t.Errorf("Response = %+v, want pong test-ping-1", resp)
	}

	if err := ws.WriteJSON(WSMessage{Type: "evaluate", ID: "x"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if resp := readResponse(t, ws); resp.Type != "error" {
		t.Errorf("Response type = %q, want error", resp.Type)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	m := NewMonitor("1.0.0")
	ws, done := dial(t, m)
	defer done()
	readResponse(t, ws) // hello

	// the client registers right after the greeting is queued; wait for it
	deadline := time.Now().Add(2 * time.Second)
	for {
		m.mu.RLock()
		n := len(m.clients)
		m.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Publish(testSummary(42))
	resp := readResponse(t, ws)
	if resp.Type != "summary" || resp.ID == "" {
		t.Fatalf("Response = %+v, want summary", resp)
	}
	raw, _ := json.Marshal(resp.Payload)
	var s episode.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if s.Index != 42 || s.MeanScore != 123 {
		t.Errorf("payload = %+v", s)
	}

	if err := ws.WriteJSON(WSMessage{Type: "history", ID: "h"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if resp := readResponse(t, ws); resp.Type != "history" || resp.ID != "h" {
		t.Errorf("Response = %+v, want history", resp)
	}
}

func TestServeShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	srv := NewServer(NewMonitor("v"), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ready) }()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-errc:
		t.Fatalf("Serve: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr.String() + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestEventsStream(t *testing.T) {
	m := NewMonitor("v")
	srv := httptest.NewServer(http.HandlerFunc(m.Events))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?limit=1")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("reading stream: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	if event, data := readEvent(); event != "hello" || data != "null" {
		t.Errorf("first event = %s %s, want hello null", event, data)
	}

	m.Publish(testSummary(7))
	event, data := readEvent()
	if event != "summary" {
		t.Fatalf("event = %q, want summary", event)
	}
	var s episode.Summary
	if err := json.Unmarshal([]byte(data), &s); err != nil || s.Index != 7 {
		t.Errorf("summary = %+v (%v)", s, err)
	}
	if event, _ := readEvent(); event != "done" {
		t.Errorf("event = %q, want done", event)
	}
}
