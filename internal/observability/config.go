package observability

import (
	"net/http/pprof"

	"github.com/gorilla/mux"
)

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	EnablePprof bool
}

// PprofPrefix is where profiling handlers are mounted.
const PprofPrefix = "/debug/pprof"

// Register mounts the enabled debug handlers on router and reports whether
// anything was added.
func Register(router *mux.Router, cfg Config) bool {
	if router == nil || !cfg.EnablePprof {
		return false
	}
	sub := router.PathPrefix(PprofPrefix).Subrouter()
	sub.HandleFunc("/cmdline", pprof.Cmdline)
	sub.HandleFunc("/profile", pprof.Profile)
	sub.HandleFunc("/symbol", pprof.Symbol)
	sub.HandleFunc("/trace", pprof.Trace)
	sub.PathPrefix("/").HandlerFunc(pprof.Index)
	return true
}
