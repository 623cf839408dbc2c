// Package server is the browser-facing shell: an HTML page, a WebSocket that
// streams explanation snapshots, and a plain NDJSON endpoint for scripts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	tutor "github.com/haowjy/meridian-tutor"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Addr            string
	DefaultModel    tutor.ProviderID
	ShutdownTimeout time.Duration
	Logger          zerolog.Logger
}

// Server serves the tutor UI.
type Server struct {
	explainer       *tutor.Explainer
	addr            string
	defaultModel    tutor.ProviderID
	shutdownTimeout time.Duration
	logger          zerolog.Logger
	page            []byte
}

// New creates a server. The page is rendered once since the model list is
// fixed after startup.
func New(explainer *tutor.Explainer, opts Options) *Server {
	s := &Server{
		explainer:       explainer,
		addr:            opts.Addr,
		defaultModel:    opts.DefaultModel,
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          opts.Logger,
	}
	if s.defaultModel == "" {
		s.defaultModel = tutor.ProviderOpenAI
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = DefaultShutdownTimeout
	}
	s.page = s.renderPage()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /api/models", s.models)
	mux.HandleFunc("POST /api/explain", s.explain)
	mux.HandleFunc("GET /healthz", s.health)

	// WebSocket
	mux.HandleFunc("/ws", s.serveWS)

	return mux
}

// Run listens until ctx is cancelled, then shuts down gracefully. Open
// WebSocket sessions are bound to ctx and close with it.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("tutor UI online")
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("shutting down")
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.page)
}

func (s *Server) models(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, s.explainer.Models(), http.StatusOK)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// explain streams one explanation as newline-delimited JSON. Errors found
// before streaming starts get a 400; later ones arrive as a final error line.
func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	var msg ClientMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		jsonErr(w, "invalid body", http.StatusBadRequest)
		return
	}

	x, err := s.explainer.Explain(r.Context(), s.toRequest(msg))
	if err != nil {
		reply := errorMessage("", err, "")
		reply.ClientID = msg.ClientID
		jsonOK(w, reply, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("X-Request-Id", x.ID)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(m ServerMessage) bool {
		m.ClientID = msg.ClientID
		if err := enc.Encode(m); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	for snap, err := range x.Snapshots() {
		if err != nil {
			emit(errorMessage(x.ID, err, snap.Text))
			return
		}
		if !emit(snapshotMessage(x.ID, snap)) {
			return
		}
	}
	emit(doneMessage(x.ID, x.Text()))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	jsonOK(w, map[string]string{"error": msg}, code)
}
