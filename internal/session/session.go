// Package session is the WebSocket-facing edge of the gateway: the
// broker's opaque "session" collaborator. It owns the upgrade, the
// read/write pumps, and the rate limiter for one connection, and
// translates decoded text frames into broker.SessionMessages.
package session

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"hashbroker/internal/broker"
	"hashbroker/internal/wire"
)

// ConnectionRecorder observes connect/disconnect events for audit
// logging. It is an ambient concern (internal/audit), decoupled here
// behind an interface so this package does not depend on Postgres.
type ConnectionRecorder interface {
	Record(ctx context.Context, clientID uint64, sessionID, kind string) error
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to the peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from a peer.
	maxMessageSize = 4096

	// Outbound buffer depth before a session is considered unable to
	// keep up and its connection is torn down.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// No authentication/authorization is in scope (spec §1
		// Non-goals); origin checking is left to a fronting proxy.
		return true
	},
}

// Session is one WebSocket connection. It implements broker.SessionSink
// so the broker can push frames to it without blocking.
type Session struct {
	conn     *websocket.Conn
	send     chan []byte
	logID    string // short uuid, for log correlation only
	clientID uint64 // broker-facing, from IDGenerator, monotonic — spec §3 Client id
	inbox    chan<- broker.SessionMessage
	limiter  *rate.Limiter
	recorder ConnectionRecorder
}

// Send implements broker.SessionSink. It must never block the broker:
// a full channel means this session isn't keeping up, so the message
// is dropped and the connection is closed, which will shortly produce
// a Disconnect through the session's own lifecycle (spec §7).
func (s *Session) Send(message []byte) {
	select {
	case s.send <- message:
	default:
		log.Printf("session %s: outbound buffer full, closing", s.logID)
		s.conn.Close()
	}
}

// publish forwards msg to the broker's inbox without blocking. A full
// inbox means the broker is not draining fast enough to keep its
// capacity promise (spec §5: "producers do not block on space... choose
// capacity generously"); treating overflow as fatal to this session
// beats stalling its pumps indefinitely.
func (s *Session) publish(msg broker.SessionMessage) {
	select {
	case s.inbox <- msg:
	default:
		log.Printf("session %s: broker inbox full, closing", s.logID)
		s.conn.Close()
	}
}

// Handle upgrades the HTTP request to a WebSocket connection, registers
// a new session with the broker, and starts its pumps. ids assigns the
// broker-facing client id; limiterRPS/limiterBurst bound the rate of
// inbound action frames this session will forward to the broker.
func Handle(w http.ResponseWriter, r *http.Request, b *broker.Broker, ids *IDGenerator, limiterRPS float64, limiterBurst int, recorder ConnectionRecorder) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("session: upgrade failed: %v", err)
		return
	}

	s := &Session{
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		logID:    uuid.New().String()[:8],
		clientID: ids.Next(),
		inbox:    b.Inbox(),
		limiter:  rate.NewLimiter(rate.Limit(limiterRPS), limiterBurst),
		recorder: recorder,
	}

	s.publish(broker.Connect(s.clientID, s))
	s.record(context.Background(), "connect")
	log.Printf("session %s: connected as client %d", s.logID, s.clientID)

	go s.writePump()
	go s.readPump()
}

// record best-effort logs a lifecycle event; audit logging must never
// block or fail the connection it describes.
func (s *Session) record(ctx context.Context, kind string) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.recorder.Record(ctx, s.clientID, s.logID, kind); err != nil {
		log.Printf("session %s: audit record %s: %v", s.logID, kind, err)
	}
}

// readPump pumps decoded frames from the WebSocket connection to the
// broker. It is the sole place a Disconnect is emitted: the broker
// treats it as authoritative regardless of why the session stopped
// (spec §5, Cancellation).
func (s *Session) readPump() {
	defer func() {
		s.publish(broker.Disconnect(s.clientID))
		s.record(context.Background(), "disconnect")
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("session %s: read error: %v", s.logID, err)
			}
			return
		}

		if !s.limiter.Allow() {
			continue
		}

		action, err := wire.ParseClientAction(frame)
		if err != nil {
			s.Send([]byte(wire.FormatParseError(err)))
			continue
		}

		s.publish(broker.Action(s.clientID, action))
	}
}

// writePump pumps frames queued by the broker to the WebSocket
// connection and drives the ping/pong keepalive.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
