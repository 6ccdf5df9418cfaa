package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/roberasa/legalario-transactional-api/internal/metrics"
	"github.com/roberasa/legalario-transactional-api/internal/stream"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// streamTransactions handles GET /v1/transactions/stream. It upgrades the
// connection and pushes every status-change event until the client
// disconnects or the hub shuts down.
func (s *Server) streamTransactions(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "stream unavailable")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := s.hub.Subscribe()
	if sub == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(wsWriteWait))
		conn.Close()
		return
	}
	metrics.SetStreamSubscribers(s.hub.Count())

	done := make(chan struct{})
	go s.wsReader(conn, done)
	s.wsWriter(conn, sub, done)

	s.hub.Unsubscribe(sub)
	metrics.SetStreamSubscribers(s.hub.Count())
	conn.Close()
}

// wsReader drains client frames so pong handling works and closure is
// detected promptly. Inbound payloads are ignored; the stream is one-way.
func (s *Server) wsReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// wsWriter pumps hub events to the connection and keeps it alive with pings.
// It returns when the subscriber channel closes, the client goes away, or a
// write fails.
func (s *Server) wsWriter(conn *websocket.Conn, sub *stream.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// checkOrigin admits browser clients from the configured CORS origins. A "*"
// entry admits everyone, matching the CORS policy on the REST routes.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORS.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
