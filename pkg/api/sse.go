package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Events handles Server-Sent Events for streaming training summaries.
// GET /api/events?limit=...
//
// The stream opens with a "hello" event carrying the latest summary, then
// sends one "summary" event per published block. With limit > 0 the stream
// ends with a "done" event after that many summaries.
func (m *Monitor) Events(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}
	limit := parseIntParam(r.URL.Query().Get("limit"), 0)

	summaries, cancel := m.subscribe()
	defer cancel()

	writeSSEEvent(w, "hello", m.latest())
	flusher.Flush()

	for sent := 0; limit <= 0 || sent < limit; sent++ {
		select {
		case <-r.Context().Done():
			return
		case s := <-summaries:
			writeSSEEvent(w, "summary", s)
			flusher.Flush()
		}
	}

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
