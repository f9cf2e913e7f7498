package pprof

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
)

// StatsFunc returns runtime statistics exposed under <prefix>/stats.
type StatsFunc func() map[string]any

type Handler struct {
	mux *http.ServeMux
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func NewHandler(prefix string, stats StatsFunc) *Handler {
	mux := &http.ServeMux{}

	mux.HandleFunc(fmt.Sprintf("%s/", prefix), pprof.Index)
	mux.HandleFunc(fmt.Sprintf("%s/cmdline", prefix), pprof.Cmdline)
	mux.HandleFunc(fmt.Sprintf("%s/profile", prefix), pprof.Profile)
	mux.HandleFunc(fmt.Sprintf("%s/symbol", prefix), pprof.Symbol)
	mux.HandleFunc(fmt.Sprintf("%s/trace", prefix), pprof.Trace)
	mux.Handle(fmt.Sprintf("%s/vars", prefix), expvar.Handler())

	mux.HandleFunc(fmt.Sprintf("GET %s/stats", prefix), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(stats()); err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	mux.HandleFunc(fmt.Sprintf("%s/{name}", prefix), func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		pprof.Handler(name).ServeHTTP(w, r)
	})

	return &Handler{mux}
}

var _ http.Handler = &Handler{}
