package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"snake-arena/server"
	"snake-arena/server/internal/net/session"
)

// Serve runs one connection: a read loop on the calling goroutine and a
// write pump draining the session's outbound queue. Socket writes never
// happen under the world lock.
func (h *Handler) Serve(conn *websocket.Conn) {
	if h == nil || h.hub == nil || conn == nil {
		return
	}
	conn.SetReadLimit(h.readLimit)

	s := h.hub.Connect()
	done := make(chan struct{})
	go h.writePump(conn, s, done)

	reason := h.readLoop(conn, s)
	h.hub.Disconnect(s.ID, reason)
	<-done
	conn.Close()
}

func (h *Handler) readLoop(conn *websocket.Conn, s *session.Session) string {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return server.DisconnectClosed
			}
			return server.DisconnectError
		}
		h.hub.HandleMessage(s, payload)
	}
}

// writePump exits when the session is closed. A failed write closes the
// socket so the read loop unwinds and disconnects the session.
func (h *Handler) writePump(conn *websocket.Conn, s *session.Session, done chan<- struct{}) {
	defer close(done)
	messageType := h.hub.Codec().MessageType()
	failed := false
	for frame := range s.Outbound() {
		if failed {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(server.WriteWait()))
		if err := conn.WriteMessage(messageType, frame); err != nil {
			failed = true
			h.hub.WriteFailed(s, err)
			conn.Close()
		}
	}
	if !failed {
		conn.SetWriteDeadline(time.Now().Add(server.WriteWait()))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.SetReadDeadline(time.Now().Add(server.WriteWait()))
	}
}
