package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"airsentry/internal/infra/async"
	"airsentry/internal/infra/httpserver"
	"airsentry/internal/sensing/store"

	"github.com/gorilla/websocket"
)

// TopicSnapshots is the broker topic the telemetry worker publishes each
// store snapshot to.
const TopicSnapshots async.BrokerTopicName = "snapshots"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The station API is LAN-facing; origins are not restricted.
		return true
	},
}

type snapshotEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      store.State `json:"data"`
}

// SnapshotWebSocketController streams every published store snapshot to all
// connected websocket clients.
type SnapshotWebSocketController struct {
	broker     async.InternalBroker
	clients    map[*websocket.Conn]bool
	clientsMux sync.RWMutex
	broadcast  chan snapshotEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewSnapshotWebSocketController(broker async.InternalBroker) *SnapshotWebSocketController {
	ctx, cancel := context.WithCancel(context.Background())

	wsc := &SnapshotWebSocketController{
		broker:     broker,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan snapshotEvent, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		ctx:        ctx,
		cancel:     cancel,
	}

	go wsc.run()

	return wsc
}

var _ httpserver.Controller = (*SnapshotWebSocketController)(nil)

func (wsc *SnapshotWebSocketController) AddRoutes(router *http.ServeMux) {
	router.Handle("GET /ws/snapshots", wsc.handleWebSocket())
}

func (wsc *SnapshotWebSocketController) Close() {
	wsc.cancel()
}

func (wsc *SnapshotWebSocketController) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", slog.Any("error", err))
			return
		}

		slog.Info("new websocket connection", slog.String("remote_addr", r.RemoteAddr))
		select {
		case wsc.register <- conn:
		case <-wsc.ctx.Done():
			conn.Close()
			return
		}

		go wsc.handlePingPong(conn)
		go wsc.handleClient(conn)
	}
}

func (wsc *SnapshotWebSocketController) handleClient(conn *websocket.Conn) {
	defer func() {
		// After the hub loop has exited nothing receives on unregister;
		// the closed controller context unblocks lingering clients.
		select {
		case wsc.unregister <- conn:
		case <-wsc.ctx.Done():
		}
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("websocket read error", slog.Any("error", err))
			} else {
				slog.Debug("websocket connection closed", slog.Any("error", err))
			}
			return
		}
	}
}

func (wsc *SnapshotWebSocketController) handlePingPong(conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-wsc.ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (wsc *SnapshotWebSocketController) run() {
	// Whatever takes the hub loop down must also release client goroutines
	// blocked on register/unregister.
	defer wsc.cancel()

	subscription, err := wsc.broker.Subscribe(TopicSnapshots)
	if err != nil {
		slog.Error("subscribing to snapshots", slog.Any("error", err))
		return
	}
	defer wsc.broker.Unsubscribe(TopicSnapshots, subscription)

	for {
		select {
		case <-wsc.ctx.Done():
			wsc.closeAllClients()
			return
		case conn := <-wsc.register:
			wsc.clientsMux.Lock()
			wsc.clients[conn] = true
			wsc.clientsMux.Unlock()
		case conn := <-wsc.unregister:
			wsc.clientsMux.Lock()
			delete(wsc.clients, conn)
			wsc.clientsMux.Unlock()
		case msg, ok := <-subscription.Receiver:
			if !ok {
				wsc.closeAllClients()
				return
			}
			snapshot, ok := msg.Value.(store.State)
			if !ok {
				slog.Warn("unexpected snapshot payload type")
				continue
			}
			wsc.broadcastSnapshot(snapshotEvent{
				Type:      msg.Event,
				Timestamp: time.Now(),
				Data:      snapshot,
			})
		}
	}
}

func (wsc *SnapshotWebSocketController) broadcastSnapshot(event snapshotEvent) {
	wsc.clientsMux.RLock()
	defer wsc.clientsMux.RUnlock()

	for conn := range wsc.clients {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			slog.Debug("dropping slow websocket client", slog.Any("error", err))
			conn.Close()
		}
	}
}

func (wsc *SnapshotWebSocketController) closeAllClients() {
	wsc.clientsMux.Lock()
	defer wsc.clientsMux.Unlock()
	for conn := range wsc.clients {
		conn.Close()
	}
	wsc.clients = make(map[*websocket.Conn]bool)
}
