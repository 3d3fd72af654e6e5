package api

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"ytmp3server/internal/core/domain"
)

const (
	writeTimeout = 5 * time.Second
	// sendBuffer is how many updates a client may lag behind before it is dropped.
	sendBuffer = 64
)

// allTasks is the subscription key for clients watching every task.
const allTasks = ""

// originChecker accepts same-origin requests, requests without an Origin
// header, and origins listed in allowed. "*" allows every origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// client owns one websocket connection. Only writeLoop writes to conn.
type client struct {
	conn *websocket.Conn
	send chan taskResponse
	quit chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan taskResponse, sendBuffer),
		quit: make(chan struct{}),
	}
}

// enqueue never blocks; it reports false when the client is too far behind.
func (c *client) enqueue(msg taskResponse) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.quit) })
}

func (c *client) writeLoop() error {
	for {
		select {
		case <-c.quit:
			return nil
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return err
			}
		}
	}
}

// Hub fans task snapshots out to websocket subscribers.
type Hub struct {
	logger *log.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*client]struct{}),
	}
}

// Broadcast queues a task snapshot for its own subscribers and for clients
// watching all tasks. Clients whose queue is full are disconnected. It is
// registered as a registry observer.
func (h *Hub) Broadcast(task domain.Task) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[task.ID])+len(h.subs[allTasks]))
	for c := range h.subs[task.ID] {
		targets = append(targets, c)
	}
	for c := range h.subs[allTasks] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := newTaskResponse(task)
	for _, c := range targets {
		if !c.enqueue(msg) {
			h.logger.Printf("websocket client too slow, dropping it (task %s)", task.ID)
			h.remove(c)
			c.close()
		}
	}
}

// Subscribers counts clients watching key ("" for all tasks).
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

func (h *Hub) add(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*client]struct{})
	}
	h.subs[key][c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, set := range h.subs {
		if _, ok := set[c]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, key)
			}
		}
	}
}

func (a *App) watchAll(w http.ResponseWriter, r *http.Request) {
	a.serveWatch(w, r, allTasks, nil)
}

func (a *App) watchTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok := a.registry.GetTask(id)
	if !ok {
		a.respondError(w, domain.ErrTaskNotFound)
		return
	}
	a.serveWatch(w, r, id, &task)
}

func (a *App) serveWatch(w http.ResponseWriter, r *http.Request, key string, initial *domain.Task) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Printf("websocket upgrade error: %v", err)
		return
	}
	c := newClient(conn)
	if initial != nil {
		c.enqueue(newTaskResponse(*initial))
	}
	a.hub.add(key, c)
	defer func() {
		a.hub.remove(c)
		c.close()
		conn.Close()
	}()

	// Clients only listen; reading detects the close.
	go func() {
		defer c.close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := c.writeLoop(); err != nil {
		a.logger.Printf("websocket write error: %v", err)
	}
}
