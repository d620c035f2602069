// Package web serves the operational HTTP surface: health, status, metrics,
// a live event stream, and the ingest endpoint push sources are addressed
// through.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatwatch/internal/eventbus"
	"chatwatch/internal/notify"
	"chatwatch/internal/source/webhook"
	logx "chatwatch/pkg/logx"
)

// maxIngestBody bounds a single webhook payload.
const maxIngestBody = 1 << 20

// StatusFunc returns the monitor's current snapshot; kept as a func so the
// server has no dependency on the monitor package.
type StatusFunc func() any

type Config struct {
	Listen string
}

type Server struct {
	log    logx.Logger
	bus    eventbus.Bus
	status StatusFunc
	engine *notify.Engine

	// ingest maps URL source names to their webhook queues.
	ingest map[string]*webhook.Source

	srv *http.Server
}

func New(cfg Config, status StatusFunc, engine *notify.Engine, sources []*webhook.Source, log logx.Logger, bus eventbus.Bus) *Server {
	if cfg.Listen == "" {
		cfg.Listen = ":8321"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		log:    log,
		bus:    bus,
		status: status,
		engine: engine,
		ingest: map[string]*webhook.Source{},
	}
	for _, src := range sources {
		s.ingest[src.Name()] = src
	}
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/events", s.handleEvents)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhook/{source}", s.handleIngest)
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(sctx); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{}
	if s.status != nil {
		out["monitor"] = s.status()
	}
	if s.engine != nil {
		out["channels"] = s.engine.Stats()
	}
	writeJSON(w, http.StatusOK, out)
}

// handleIngest accepts a push payload for one webhook source.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "source")
	src, ok := s.ingest[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown source %q", name))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	token := r.Header.Get("X-Chatwatch-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if err := src.VerifyToken(token, body); err != nil {
		writeError(w, http.StatusUnauthorized, "token rejected")
		return
	}

	switch err := src.Enqueue(body); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	case errors.Is(err, webhook.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "queue full")
	case errors.Is(err, webhook.ErrBadPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleEvents streams bus events as server-sent events until the client
// goes away. Slow clients miss events rather than backing up the bus.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeError(w, http.StatusNotFound, "event stream unavailable")
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, unsubscribe := s.bus.Subscribe(64)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			fl.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
