package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// HTTPServer serves /healthz and /stats over plain HTTP, grounded on the
// teacher's own gorilla/mux router setup.
type HTTPServer struct {
	router *mux.Router
	src    Source
}

// NewHTTPServer builds a router reporting on src.
func NewHTTPServer(src Source) *HTTPServer {
	h := &HTTPServer{router: mux.NewRouter(), src: src}
	h.router.HandleFunc("/healthz", h.healthz).Methods("GET")
	h.router.HandleFunc("/stats", h.stats).Methods("GET")
	return h
}

// Handler returns the router for use with http.Server.
func (h *HTTPServer) Handler() http.Handler { return h.router }

func (h *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *HTTPServer) stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statsMap(h.src)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
