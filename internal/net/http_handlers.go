package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"

	"github.com/gorilla/mux"

	"snake-arena/server"
	"snake-arena/server/internal/net/session"
	"snake-arena/server/internal/net/ws"
	"snake-arena/server/internal/observability"
)

type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        *log.Logger
	Observability observability.Config
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, hub.Diagnostics())
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/world/resync", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hub.ResyncAll(session.ResyncAdmin)
		writeJSON(w, struct {
			Status string `json:"status"`
		}{Status: "ok"})
	}).Methods(nethttp.MethodPost)

	handler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	router.HandleFunc("/ws", handler.Handle)

	if observability.Register(router, cfg.Observability) {
		logger.Printf("pprof enabled at %s", observability.PprofPrefix)
	}

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		router.PathPrefix("/").Handler(fs)
	}

	return router
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
