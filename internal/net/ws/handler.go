package ws

import (
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"snake-arena/server"
)

const defaultReadLimit = 4096

type HandlerConfig struct {
	Logger *log.Logger
	// ReadLimit caps a single inbound frame in bytes.
	ReadLimit int64
}

type Handler struct {
	hub       *server.Hub
	logger    *log.Logger
	upgrader  websocket.Upgrader
	readLimit int64
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	readLimit := cfg.ReadLimit
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:       hub,
		logger:    logger,
		upgrader:  upgrader,
		readLimit: readLimit,
	}
}

// Handle upgrades the request and serves the connection until it closes.
// The viewer starts in the pre-game phase and must send a join message.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	h.Serve(conn)
}
