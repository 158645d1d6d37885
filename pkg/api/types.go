// Package api serves a live view of a training run over HTTP and WebSocket.
package api

import "github.com/threestd/threes/pkg/episode"

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error string `json:"error"`          // Error message
	Code  string `json:"code,omitempty"` // Error code
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status   string  `json:"status"`   // "ok"
	Version  string  `json:"version"`  // Trainer version
	RunID    string  `json:"run_id"`   // Identifies this training run
	Uptime   float64 `json:"uptime"`   // Seconds since the monitor started
	Episodes int     `json:"episodes"` // Episodes covered by published summaries
	Clients  int     `json:"clients"`  // Connected WebSocket and SSE clients
}

// StatsResponse is the response for GET /api/stats.
type StatsResponse struct {
	RunID   string            `json:"run_id"`
	Latest  *episode.Summary  `json:"latest,omitempty"`  // Most recent block
	History []episode.Summary `json:"history,omitempty"` // Every block so far, oldest first
}

// WSMessage is a message sent by a WebSocket client.
type WSMessage struct {
	Type string `json:"type"` // "ping" or "history"
	ID   string `json:"id"`   // Request ID for correlating responses
}

// WSResponse is a message pushed to WebSocket clients.
type WSResponse struct {
	Type    string      `json:"type"`              // "hello", "summary", "history", "pong", "error"
	ID      string      `json:"id,omitempty"`      // Request or event ID
	Payload interface{} `json:"payload,omitempty"` // Response data
	Error   string      `json:"error,omitempty"`   // Error message if any
}
