package websocket

import (
	"encoding/json"
	"sync"
)

const (
	// broadcastBuffer is how many pending broadcasts Hub queues before
	// Broadcast blocks.
	broadcastBuffer = 256

	// clientBuffer is how many messages may wait for one connection. A
	// connection that falls further behind is dropped.
	clientBuffer = 256
)

// Hub fans data messages out to a set of connections.
//
// Registration, removal and broadcasts are funnelled through one event loop
// started with Run, so callers on any goroutine may use them. Every
// connection has its own queue drained by a single writer goroutine, so it
// receives broadcasts in the order they were made. A connection whose write
// fails, or whose queue is full, is dropped and closed.
//
// Example Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Close()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//	    conn, err := websocket.Upgrade(w, r, nil)
//	    if err != nil {
//	        return
//	    }
//	    hub.Register(conn)
//	    defer hub.Unregister(conn)
//
//	    for ev, err := range conn.Events() {
//	        if err != nil {
//	            return
//	        }
//	        if ev.Type.IsData() {
//	            hub.Broadcast(ev.Type, ev.Payload())
//	        }
//	    }
//	})
type Hub struct {
	// mu guards clients. Queues are sent to under RLock and closed under
	// Lock, so a send never hits a closed queue.
	mu      sync.RWMutex
	clients map[*Conn]chan Event

	register   chan *Conn
	unregister chan *Conn
	broadcast  chan Event

	done      chan struct{}
	closeOnce sync.Once
	running   sync.WaitGroup
	writers   sync.WaitGroup
}

// NewHub returns a Hub. Start its loop with go hub.Run().
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Conn]chan Event),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		broadcast:  make(chan Event, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Close is called.
func (h *Hub) Run() {
	h.running.Add(1)
	defer h.running.Done()

	for {
		select {
		case c := <-h.register:
			h.add(c)

		case c := <-h.unregister:
			h.drop(c)

		case ev := <-h.broadcast:
			h.fanOut(ev)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		return
	}
	queue := make(chan Event, clientBuffer)
	h.clients[c] = queue

	h.writers.Add(1)
	go h.write(c, queue)
}

// fanOut queues ev for every client. Clients whose queue is full are
// dropped after the pass.
func (h *Hub) fanOut(ev Event) {
	var slow []*Conn

	h.mu.RLock()
	for c, queue := range h.clients {
		select {
		case queue <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
}

// write is the only goroutine writing broadcasts to c. It drains the queue
// until the queue is closed, then closes c.
func (h *Hub) write(c *Conn, queue <-chan Event) {
	defer h.writers.Done()
	defer c.Close()

	for ev := range queue {
		if err := c.Write(ev.Type, ev.Payload()); err != nil {
			h.drop(c)
			return
		}
	}
}

// drop removes c and closes its queue; the writer then closes c once the
// queued messages are flushed. Dropping an unknown connection is a no-op.
func (h *Hub) drop(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if queue, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(queue)
	}
}

// Register adds c to the broadcast set. It is a no-op once the Hub is
// closed.
func (h *Hub) Register(c *Conn) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes c and closes it. Repeated calls are no-ops.
func (h *Hub) Unregister(c *Conn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a Text or Binary message for every registered
// connection. Binary data is shared by all queues and must not be modified
// after the call. Messages queued after Close are discarded.
func (h *Hub) Broadcast(msgType MessageType, data []byte) {
	ev := Event{Type: msgType, Data: data}
	if msgType == TextMessage {
		ev = Event{Type: msgType, Text: string(data)}
	}

	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// BroadcastText queues a text message for every registered connection.
func (h *Hub) BroadcastText(text string) {
	h.Broadcast(TextMessage, []byte(text))
}

// BroadcastJSON marshals v and queues it as a text message.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.Broadcast(TextMessage, data)
	return nil
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the loop, flushes the queued messages and closes every
// registered connection. Safe to call more than once.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.running.Wait()

		h.mu.Lock()
		for c, queue := range h.clients {
			delete(h.clients, c)
			close(queue)
		}
		h.mu.Unlock()

		h.writers.Wait()
	})

	return nil
}
