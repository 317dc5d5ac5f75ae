// Package web serves the ride status page, its JSON forms, and a live websocket feed.
package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/deskcycle-kb/internal/history"
	"github.com/sweeney/deskcycle-kb/internal/status"
)

// DefaultPushInterval is how often /ws clients receive a fresh status.
const DefaultPushInterval = time.Second

const (
	recentRides  = 20
	writeTimeout = 5 * time.Second
)

// RideLister is the read side of the ride history.
type RideLister interface {
	Recent(limit int) ([]history.Ride, error)
	Totals() (history.Totals, error)
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	rides      RideLister // nil when history is disabled
	interval   time.Duration
	upgrader   websocket.Upgrader

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Server that reads state from tracker and, if rides is non-nil, the ride history.
func New(addr string, tracker *status.Tracker, rides RideLister) *Server {
	s := &Server{
		tracker:  tracker,
		rides:    rides,
		interval: DefaultPushInterval,
		upgrader: websocket.Upgrader{
			// The page is served from this host; any origin on the LAN may read it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/rides.json", s.handleRides)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops the websocket feeds and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.rides != nil)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleRides(w http.ResponseWriter, r *http.Request) {
	if s.rides == nil {
		http.Error(w, "ride history disabled", http.StatusNotFound)
		return
	}
	data, err := formatRides(s.rides, recentRides)
	if err != nil {
		log.Printf("web: rides: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleWS pushes the compact status JSON every interval until the client
// goes away or the server shuts down.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close and ping control messages are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		snap := s.tracker.Snapshot()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, status.FormatStatusEvent(snap, "", "")); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}
