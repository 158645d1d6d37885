package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins - the monitor is read-only
	},
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	conn     *websocket.Conn
	monitor  *Monitor
	sendChan chan WSResponse
	mu       sync.Mutex
	closed   bool
}

// WebSocket streams training summaries to the client as they are published.
func (m *Monitor) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	client := &WSClient{conn: conn, monitor: m, sendChan: make(chan WSResponse, 256)}

	// queue the greeting before registering so it is always the first message
	client.trySend(WSResponse{Type: "hello", ID: m.runID, Payload: m.latest()})
	m.register(client)

	go client.writePump()
	client.readPump()
}

// trySend queues msg unless the client is gone or its buffer is full.
func (c *WSClient) trySend(msg WSResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.sendChan <- msg:
	default:
	}
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.monitor.unregister(c)
		c.mu.Lock()
		c.closed = true
		close(c.sendChan)
		c.mu.Unlock()
		c.conn.Close()
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "ping":
		c.trySend(WSResponse{Type: "pong", ID: msg.ID})
	case "history":
		c.trySend(WSResponse{Type: "history", ID: msg.ID, Payload: c.monitor.History()})
	default:
		c.trySend(WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type"})
	}
}
