package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	tutor "github.com/haowjy/meridian-tutor"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMessage = 1 << 20
)

// upgrader keeps gorilla's default origin check: browsers may only connect
// from the page this server rendered.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// session is one browser connection. At most one explanation streams at a
// time: a new explain supersedes the running one and its remaining output
// is dropped.
type session struct {
	ctx       context.Context
	conn      *websocket.Conn
	send      chan []byte
	explainer *tutor.Explainer
	server    *Server
	logger    zerolog.Logger

	mu      sync.Mutex
	current string // request id allowed to write
	cancel  context.CancelFunc

	streams sync.WaitGroup
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("WS upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	sess := &session{
		ctx:       ctx,
		conn:      conn,
		send:      make(chan []byte, 64),
		explainer: s.explainer,
		server:    s,
		logger:    s.logger.With().Str("remote", r.RemoteAddr).Logger(),
	}
	sess.logger.Debug().Msg("WS connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.writePump()
	}()

	sess.readPump()

	cancel()
	sess.stop(false)
	sess.streams.Wait()
	<-done
	sess.logger.Debug().Msg("WS disconnected")
}

// writePump is the only goroutine that writes to the connection.
func (sess *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.conn.Close()
	}()

	for {
		select {
		case <-sess.ctx.Done():
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			sess.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (sess *session) readPump() {
	sess.conn.SetReadLimit(maxMessage)
	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		sess.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := sess.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Debug().Err(err).Msg("WS read failed")
			}
			return
		}
		sess.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case TypeExplain:
			sess.start(msg)
		case TypeCancel:
			sess.stop(true)
		default:
			sess.enqueue(ServerMessage{
				Type:    TypeError,
				Kind:    tutor.KindInvalidRequest,
				Message: "unknown message type '" + msg.Type + "'",
			})
		}
	}
}

// stop cancels the running explanation. With keepOwner the stream may still
// report its cancellation and partial text; otherwise its output is dropped.
func (sess *session) stop(keepOwner bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	if !keepOwner {
		sess.current = ""
	}
}

func (sess *session) start(msg ClientMessage) {
	sess.stop(false)

	ctx, cancel := context.WithCancel(sess.ctx)
	x, err := sess.explainer.Explain(ctx, sess.server.toRequest(msg))
	if err != nil {
		cancel()
		reply := errorMessage("", err, "")
		reply.ClientID = msg.ClientID
		sess.enqueue(reply)
		return
	}

	sess.mu.Lock()
	sess.current = x.ID
	sess.cancel = cancel
	sess.mu.Unlock()

	sess.streams.Add(1)
	go func() {
		defer sess.streams.Done()
		defer cancel()
		sess.stream(x, msg.ClientID)
	}()
}

func (sess *session) stream(x *tutor.Explanation, clientID string) {
	defer sess.release(x.ID)

	emit := func(msg ServerMessage) bool {
		msg.ClientID = clientID
		return sess.emit(x.ID, msg)
	}

	for snap, err := range x.Snapshots() {
		if err != nil {
			emit(errorMessage(x.ID, err, snap.Text))
			return
		}
		if !emit(snapshotMessage(x.ID, snap)) {
			return
		}
	}
	emit(doneMessage(x.ID, x.Text()))
}

func (sess *session) release(requestID string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.current == requestID {
		sess.current = ""
		sess.cancel = nil
	}
}

// emit queues a message for the request that currently owns the socket.
// It reports false once the request has been superseded. The ownership check
// and the queueing happen under one lock so nothing stale follows a newer
// request's first message. Messages queued before the supersede still go
// out; clients drop them by client_id.
func (sess *session) emit(requestID string, msg ServerMessage) bool {
	b, err := json.Marshal(msg)
	if err != nil {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.current != requestID {
		return false
	}

	select {
	case sess.send <- b:
		return true
	case <-sess.ctx.Done():
		return false
	case <-time.After(writeWait):
		sess.logger.Warn().Str("request_id", requestID).Msg("client too slow, dropping stream")
		return false
	}
}

// enqueue queues a message not bound to a running stream.
func (sess *session) enqueue(msg ServerMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case sess.send <- b:
	case <-sess.ctx.Done():
	}
}
