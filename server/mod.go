// Package server implements a read-only HTTP server that publishes the root of
// a commitment tree, the proofs of its witnessed commitments and its anchors.
//
// Routes:
//
//	GET /root                    root, length and number of witnessed commitments
//	GET /witness/{commitment}    proof of membership of a commitment
//	GET /anchors/{height}        root stored at the given height
//	GET /metrics                 Prometheus metrics
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/tct"
	"go.dedis.ch/tct/core/accumulator"
	"go.dedis.ch/tct/core/digest"
	"golang.org/x/xerrors"
)

type key int

const (
	requestIDKey key = 0

	shutdownTimeout = 10 * time.Second
)

// Tree is the view of the commitment tree that is served.
type Tree interface {
	Root() accumulator.Root
	Len() uint64
	Witnessed() int
	Witness(c digest.Commitment) (accumulator.Proof, bool)
}

// Anchors gives access to the roots stored by height.
type Anchors interface {
	GetAnchor(height uint64) (accumulator.Root, error)
}

// Server is the HTTP server of a commitment tree.
//
// - implements http.Handler
type Server struct {
	sync.Mutex

	handler    http.Handler
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	quit       chan struct{}

	tree    Tree
	anchors Anchors
}

// NewServer creates a new server that will listen on the given address. An
// empty address selects a random port.
func NewServer(listenAddr string, tree Tree, anchors Anchors) *Server {
	logger := tct.Logger.With().Str("role", "http server").Logger()

	srv := &Server{
		logger:     logger,
		listenAddr: listenAddr,
		quit:       make(chan struct{}),
		tree:       tree,
		anchors:    anchors,
	}

	router := mux.NewRouter()
	router.HandleFunc("/root", srv.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/witness/{commitment}", srv.handleWitness).Methods(http.MethodGet)
	router.HandleFunc("/anchors/{height:[0-9]+}", srv.handleAnchor).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(srv.registry(), promhttp.HandlerOpts{}))

	srv.handler = tracing(nextRequestID)(logging(logger)(router))

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Listen starts the server and blocks until Stop is called.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return xerrors.Errorf("failed to listen on '%s': %v", s.listenAddr, err)
	}

	s.Lock()
	s.ln = ln
	s.Unlock()

	done := make(chan struct{})

	go func() {
		<-s.quit
		s.logger.Info().Msg("server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.server.SetKeepAlivesEnabled(false)

		err := s.server.Shutdown(ctx)
		if err != nil {
			s.logger.Err(err).Msg("could not gracefully shutdown the server")
		}

		close(done)
	}()

	s.logger.Info().Msgf("server is ready to handle requests at http://%s", ln.Addr())

	err = s.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return xerrors.Errorf("failed to serve: %v", err)
	}

	<-done
	s.logger.Info().Msg("server stopped")

	return nil
}

// GetAddr returns the address of the listener, or nil if the server is not
// listening.
func (s *Server) GetAddr() net.Addr {
	s.Lock()
	defer s.Unlock()

	if s.ln == nil {
		return nil
	}

	return s.ln.Addr()
}

// Stop stops the server. It must be called only once per call to Listen.
func (s *Server) Stop() {
	s.quit <- struct{}{}
}

// registry returns a registry with the collectors of every package.
func (s *Server) registry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	for _, c := range tct.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to register collector")
		}
	}

	return registry
}

func nextRequestID() string {
	return xid.New().String()
}

// logging is a utility function that logs the http server events
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				requestID, ok := r.Context().Value(requestIDKey).(string)
				if !ok {
					requestID = "unknown"
				}
				logger.Info().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).Msg("")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// tracing is a utility function that adds header tracing
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = nextRequestID()
			}
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
