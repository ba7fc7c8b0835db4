// Package status fans stage events out to websocket listeners.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	INFO = iota
	ERROR
	EDIT
)

type Event struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Type    int       `json:"type"`
	Path    string    `json:"path,omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump drops whatever the listener sends and unregisters it once the
// connection goes away.
func (c *client) readPump() {
	defer c.hub.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub keeps the listeners and the last event, which new listeners get first.
type Hub struct {
	lock    sync.Mutex
	clients map[*client]bool
	last    []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// Serve registers conn and blocks until it closes.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{hub: h, conn: conn, send: make(chan []byte, 32)}
	h.lock.Lock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.lock.Unlock()

	go c.writePump()
	c.readPump()
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Publish sends e to every listener. A listener that cannot keep up misses it.
func (h *Hub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	data, err := json.Marshal(&e)
	if err != nil {
		log.Printf("[status] marshal error: %v", err)
		return
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("[status] listener %v is lagging, dropping event", c.conn.RemoteAddr())
		}
	}
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.Publish(Event{Message: fmt.Sprintf(format, a...), Type: INFO})
}

func (h *Hub) Error(format string, a ...interface{}) {
	h.Publish(Event{Message: fmt.Sprintf(format, a...), Type: ERROR})
}

func (h *Hub) Edit(path string, format string, a ...interface{}) {
	h.Publish(Event{Message: fmt.Sprintf(format, a...), Type: EDIT, Path: path})
}
