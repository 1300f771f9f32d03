// Package restful wraps gin with zerolog request logging and graceful
// shutdown.
package restful

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go4cms/pkg/common/logger"
)

type Server struct {
	Engine      *gin.Engine
	httpServer  *http.Server
	addr        string
	shutdownDur time.Duration
	log         zerolog.Logger
}

type Option func(*Server)

func WithAddress(addr string) Option             { return func(s *Server) { s.addr = addr } }
func WithShutdownTimeout(d time.Duration) Option { return func(s *Server) { s.shutdownDur = d } }
func WithLogger(l zerolog.Logger) Option         { return func(s *Server) { s.log = l } }

// NewEngine returns a gin engine with recovery, CORS and request logging
// routed to log.
func NewEngine(log zerolog.Logger) *gin.Engine {
	g := gin.New()
	g.Use(gin.RecoveryWithWriter(zerologWriter{log: log}))
	g.Use(CORSMiddleware())
	g.Use(RequestLogger(log))
	return g
}

// NewServer creates a server listening on :8080 unless configured.
func NewServer(opts ...Option) *Server {
	s := &Server{
		addr:        ":8080",
		shutdownDur: 5 * time.Second,
		log:         *logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.WithComponent(s.log, "http")
	s.Engine = NewEngine(s.log)
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Engine}
	return s
}

// zerologWriter adapts gin's writers to zerolog.
type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		w.log.Error().Msg(msg)
	}
	return len(p), nil
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("server error")
		}
	}()
	s.log.Info().Str("addr", s.addr).Msg("REST server started")
	return nil
}

// Addr returns the listen address, resolved once Start has run.
func (s *Server) Addr() string { return s.addr }

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.shutdownDur)
	defer cancel()
	return s.httpServer.Shutdown(ctxTimeout)
}

// RequestLogger logs one line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Int("status", c.Writer.Status()).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
