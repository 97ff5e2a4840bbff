// Package httpapi exposes the cluster's /v0/status and /v0/entity
// endpoints over HTTP, grounded on the teacher's internal/http
// server.go: a chi router wrapping a *http.Server, with the same
// Start/Stop lifecycle and graceful shutdown via http.Server.Shutdown.
// Bodies are raw bytes, not JSON — the wire format spec.md fixes for
// this store's entity endpoint.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ringkv/pkg/coordinator"
	"ringkv/pkg/workerpool"
)

const (
	statusEndpoint = "/v0/status"
	entityEndpoint = "/v0/entity"

	proxyHeader     = "Proxy"
	tombstoneHeader = "Tombstone"

	defaultShutdownTimeout = 5 * time.Second
)

// Server is the HTTP front end for one node's coordinator.
type Server struct {
	addr        string
	coord       *coordinator.Coordinator
	foreground  *workerpool.Pool
	topologyN   int
	defaultAck  int
	defaultFrom int
	logger      *slog.Logger

	httpServer *http.Server
	accepting  atomic.Bool
}

// New builds a Server. foreground bounds how many /v0/entity requests
// this node processes concurrently, mirroring the original service's
// fixed 8-thread executor.
func New(addr string, coord *coordinator.Coordinator, foreground *workerpool.Pool, topologyN, defaultAck, defaultFrom int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:        addr,
		coord:       coord,
		foreground:  foreground,
		topologyN:   topologyN,
		defaultAck:  defaultAck,
		defaultFrom: defaultFrom,
		logger:      logger,
	}
}

// router wires /v0/entity through a single method-agnostic handler
// rather than chi's per-method registration: the original service
// never rejects a method at the transport layer, it falls through to
// handleEntity's own switch and answers unsupported methods with 400,
// not a transport-level 405. Registering only Get/Put/Delete with chi
// would let its default handler answer unknown methods with 405,
// which spec.md's /v0/entity status table never lists.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Get(statusEndpoint, s.handleStatus)
	r.HandleFunc(entityEndpoint, s.handleEntity)
	return r
}

// Start begins accepting requests and returns once the listener is
// serving in the background.
func (s *Server) Start() error {
	s.accepting.Store(true)
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "err", err)
		}
	}()

	s.logger.Info("http server started", "addr", s.addr)
	return nil
}

// Stop refuses new requests, drains the foreground pool, and shuts
// down the underlying listener, in that order — the same sequencing
// as the original service's stop(): mark not-working, drain the
// executor, then close the transport.
func (s *Server) Stop(ctx context.Context) error {
	s.accepting.Store(false)
	s.foreground.Stop()

	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("I'm OK"))
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	if !s.accepting.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
	default:
		writeText(w, http.StatusBadRequest, "Unsupported method")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeText(w, http.StatusBadRequest, "Bad id")
		return
	}

	ack, from, err := parseReplicas(r.URL.Query().Get("replicas"), s.topologyN, s.defaultAck, s.defaultFrom)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	var body []byte
	if r.Method == http.MethodPut {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			writeText(w, http.StatusBadRequest, "failed to read body")
			return
		}
	}

	req := coordinator.Request{
		Method: r.Method,
		ID:     id,
		Body:   body,
		Ack:    ack,
		From:   from,
		Proxy:  r.Header.Get(proxyHeader) != "",
	}

	traceID := uuid.New()
	result := make(chan coordinator.Response, 1)
	submitErr := s.foreground.Submit(func(ctx context.Context) {
		resp, err := s.coord.Handle(ctx, req)
		if err != nil {
			s.logger.Debug("entity request rejected", "trace", traceID, "id", id, "err", err)
			resp = coordinator.Response{Status: http.StatusBadRequest, Body: []byte(err.Error())}
		}
		result <- resp
	})
	if submitErr != nil {
		s.logger.Warn("entity request dropped, foreground pool closed", "trace", traceID, "id", id)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	select {
	case resp := <-result:
		writeResponse(w, resp)
	case <-r.Context().Done():
	}
}

func writeResponse(w http.ResponseWriter, resp coordinator.Response) {
	if resp.Tombstone {
		w.Header().Set(tombstoneHeader, "true")
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
