package server

import (
	"context"
	"sync"
	"time"

	"github.com/ByteMirror/highlander/log"

	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"
)

const writeWait = 5 * time.Second

// Message is the envelope of everything written to a websocket client.
type Message struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// client serializes writes to one connection. The broadcast loop and the
// connection's read loop both write.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg Message) error {
	data, err := sonnet.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcaster pushes a status message to every registered client once per
// interval.
type Broadcaster struct {
	status   func(detailed bool) Status
	interval time.Duration

	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

func NewBroadcaster(status func(detailed bool) Status, interval time.Duration) *Broadcaster {
	return &Broadcaster{
		status:     status,
		interval:   interval,
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]*client),
	}
}

// Run owns the client set until ctx is done, then closes every connection.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer func() {
		ticker.Stop()
		b.closeAll()
		close(b.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-b.register:
			b.mu.Lock()
			b.clients[c.conn] = c
			b.mu.Unlock()
			log.InfoLog.Printf("websocket client %s connected", c.conn.RemoteAddr())
		case c := <-b.unregister:
			b.remove(c)
		case <-ticker.C:
			b.broadcast(Message{Type: "status", Data: b.status(true)})
		}
	}
}

// Done is closed once Run has returned.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

// Len returns the number of connected clients.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Register adds conn to the broadcast set. It returns false once Run has
// exited.
func (b *Broadcaster) Register(conn *websocket.Conn) (*client, bool) {
	c := &client{conn: conn}
	select {
	case b.register <- c:
		return c, true
	case <-b.done:
		return nil, false
	}
}

func (b *Broadcaster) Unregister(c *client) {
	select {
	case b.unregister <- c:
	case <-b.done:
	}
}

func (b *Broadcaster) broadcast(msg Message) {
	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			log.WarningLog.Printf("websocket write to %s failed: %v", c.conn.RemoteAddr(), err)
			b.remove(c)
		}
	}
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	_, ok := b.clients[c.conn]
	delete(b.clients, c.conn)
	b.mu.Unlock()
	if ok {
		_ = c.conn.Close()
		log.InfoLog.Printf("websocket client %s disconnected", c.conn.RemoteAddr())
	}
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		_ = conn.Close()
		delete(b.clients, conn)
	}
}
