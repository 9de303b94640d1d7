package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/navigation"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	eventBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Events streams the session's navigation events over a websocket
// (GET /events). Each event is one JSON text message.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	events, unsubscribe := session.Machine.Subscribe(eventBuffer)
	logger := h.logger.With(zap.String("sessionID", session.ID))
	logger.Debug("event stream opened")

	done := make(chan struct{})
	go readPump(conn, done, logger)
	writePump(conn, events, done, logger)

	unsubscribe()
	logger.Debug("event stream closed")
}

// readPump discards client messages and keeps the read deadline fresh.
// done is closed when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}, logger *zap.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error", zap.Error(err))
			}
			return
		}
	}
}

// writePump forwards events to the peer until the peer leaves or the
// event channel closes.
func writePump(conn *websocket.Conn, events <-chan navigation.Event, done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case e, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				logger.Warn("writing event failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
