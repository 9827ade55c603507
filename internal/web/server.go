// Package web provides the HTTP surface of the habit daemon: a status page,
// the action endpoint and a live websocket stream.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/habit-tracker/internal/dispatch"
	"github.com/sweeney/habit-tracker/internal/logger"
	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/status"
)

// maxBodyBytes bounds action request bodies.
const maxBodyBytes = 4 << 10

// Dispatcher is the part of *dispatch.Dispatcher the server uses.
type Dispatcher interface {
	Dispatch(ctx context.Context, a stats.Action, now time.Time) dispatch.Outcome
	ApplyActivity(ctx context.Context, name string, now time.Time) (dispatch.Outcome, error)
	Subscribe(buffer int) (<-chan dispatch.Outcome, func())
}

// Server serves the status page and action API over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	disp       Dispatcher
	hub        *Hub
	log        *logger.Logger
	now        func() time.Time
}

// New creates a Server that reads state from tracker and sends actions to disp.
func New(addr string, tracker *status.Tracker, disp Dispatcher, log *logger.Logger) *Server {
	s := &Server{
		tracker: tracker,
		disp:    disp,
		hub:     NewHub(log),
		log:     log.With("component", "web"),
		now:     time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("POST /api/actions", s.handleAction)
	mux.HandleFunc("POST /api/activities/{name}", s.handleActivity)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run streams dispatcher outcomes to websocket clients until ctx is done.
func (s *Server) Run(ctx context.Context) {
	outcomes, cancel := s.disp.Subscribe(32)
	defer cancel()

	go s.hub.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case out, ok := <-outcomes:
			if !ok {
				return
			}
			msg, err := formatOutcome(out)
			if err != nil {
				s.log.Error("cannot encode outcome", "error", err)
				continue
			}
			s.hub.Broadcast(msg)
		}
	}
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.Error("render index", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	var a stats.Action
	if err := json.Unmarshal(body, &a); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode action: %w", err))
		return
	}
	if err := a.Validate(); err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, stats.ErrUnknownAction) {
			code = http.StatusBadRequest
		}
		writeError(w, code, err)
		return
	}

	s.writeOutcome(w, s.disp.Dispatch(r.Context(), a, s.now()))
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	out, err := s.disp.ApplyActivity(r.Context(), r.PathValue("name"), s.now())
	if errors.Is(err, dispatch.ErrUnknownActivity) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeOutcome(w, out)
}

func (s *Server) writeOutcome(w http.ResponseWriter, out dispatch.Outcome) {
	data, err := formatOutcome(out)
	if err != nil {
		s.log.Error("cannot encode outcome", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, err error) {
	data, _ := json.Marshal(ErrorJSON{Error: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
