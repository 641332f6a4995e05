// Package realtime pushes periodic dashboard snapshots to WebSocket clients.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ctem-enterprise/internal/logger"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Source produces the payload of one stream tick.
type Source func(ctx context.Context) (interface{}, error)

// Stream is one timer on every connection.
type Stream struct {
	Type     string
	Interval time.Duration
	Fetch    Source
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// DefaultStreams returns the alerts/threats/behavior streams at 5s, 10s
// and 15s.
func DefaultStreams(alerts, threats, behavior Source) []Stream {
	return []Stream{
		{Type: "alerts", Interval: 5 * time.Second, Fetch: alerts},
		{Type: "threats", Interval: 10 * time.Second, Fetch: threats},
		{Type: "behavior", Interval: 15 * time.Second, Fetch: behavior},
	}
}

// Broadcaster upgrades requests and runs every stream for each connection
// until the client leaves or Shutdown is called.
type Broadcaster struct {
	streams  []Stream
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	clients int
}

// NewBroadcaster accepts any Origin when allowedOrigins is empty or has "*".
func NewBroadcaster(streams []Stream, allowedOrigins []string) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broadcaster{streams: streams, ctx: ctx, cancel: cancel}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return b
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(set) == 0 || origin == "" || set[origin]
	}
}

func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clients
}

func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !b.join() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer b.wg.Done()

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	b.track(1)
	defer b.track(-1)

	logger.WithField("remote", r.RemoteAddr).Infof("websocket client connected")
	b.serve(conn)
	logger.WithField("remote", r.RemoteAddr).Infof("websocket client disconnected")
}

func (b *Broadcaster) track(delta int) {
	b.mu.Lock()
	b.clients += delta
	b.mu.Unlock()
}

// join registers a connection unless Shutdown has begun. The check and the
// wg.Add share b.mu with the cancel in Shutdown.
func (b *Broadcaster) join() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx.Err() != nil {
		return false
	}
	b.wg.Add(1)
	return true
}

// Shutdown stops every connection and waits for them to finish.
func (b *Broadcaster) Shutdown() {
	b.mu.Lock()
	b.cancel()
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Broadcaster) serve(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(b.ctx)
	defer cancel()

	out := make(chan Message, len(b.streams))
	var workers sync.WaitGroup
	for _, s := range b.streams {
		workers.Add(1)
		go func(s Stream) {
			defer workers.Done()
			b.poll(ctx, s, out)
		}(s)
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		b.write(ctx, cancel, conn, out)
	}()

	// Reads only detect the close; client frames are discarded.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	workers.Wait()
	<-writerDone
}

func (b *Broadcaster) poll(ctx context.Context, s Stream, out chan<- Message) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := s.Fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Errorf("error fetching %s: %v", s.Type, err)
				}
				continue
			}
			select {
			case out <- Message{Type: s.Type, Data: data}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// write is the only goroutine writing to conn.
func (b *Broadcaster) write(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan Message) {
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warnf("websocket write %s failed: %v", msg.Type, err)
				cancel()
				return
			}
		}
	}
}
