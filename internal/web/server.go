// Package web provides the HTTP status server for the keypad panel: an HTML
// page, a JSON document, a health probe and a websocket stream of live
// events.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/sweeney/keypad-panel/internal/status"
)

// Server serves panel status over HTTP. It only reads the tracker.
type Server struct {
	tracker *status.Tracker
	hub     *Hub
	srv     *http.Server
}

// New creates a Server for tracker. When hub is non-nil, live updates are
// served at /ws; the caller runs the hub.
func New(addr string, tracker *status.Tracker, hub *Hub) *Server {
	s := &Server{tracker: tracker, hub: hub}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.handleWS)
	}
	return mux
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks until Shutdown.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting requests. Websocket connections are hijacked
// and are closed by the hub, not here.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/index.html":
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot(), s.hub != nil)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

// handleHealth answers 200 while the keypad delivers samples and 503 once
// the sampler fails, so a supervisor can restart a panel with a dead link.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if snap.State == "" || !snap.SampleOK {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no samples\n"))
		return
	}
	w.Write([]byte("ok\n"))
}
