// Package server exposes the dispatcher over HTTP.
//
//	GET  /tfp/tools   list tool descriptors
//	POST /tfp/invoke  invoke a tool with a CallToolRequest body
//	GET  /healthz     liveness
//	GET  /metrics     Prometheus exposition, when metrics are enabled
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mwiater/toolflow/internal/dispatcher"
	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/protocol"
)

const (
	defaultBodyLimit = 4 << 20
	shutdownTimeout  = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	Addr      string
	BodyLimit int64
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

// Server is the HTTP transport.
type Server struct {
	dispatcher *dispatcher.Dispatcher
	opts       Options
	mux        *http.ServeMux
}

// New builds the route table over d.
func New(d *dispatcher.Dispatcher, opts Options) *Server {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimit
	}
	s := &Server{dispatcher: d, opts: opts, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /tfp/tools", s.handleTools)
	s.mux.HandleFunc("POST /tfp/invoke", s.handleInvoke)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves on opts.Addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.LogEvent("[HTTP] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logging.LogEvent("[HTTP] shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Tools())
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.BodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := "could not read request body"
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
		}
		fault := protocol.Validation(msg, nil)
		res := protocol.Failure(uuid.NewString(), "", fault, time.Now())
		writeJSON(w, fault.Code.HTTPStatus(), res)
		return
	}

	res := s.dispatcher.InvokeJSON(r.Context(), body)
	status := http.StatusOK
	if res.IsError() {
		status = res.Error.Code.HTTPStatus()
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
