package restful

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() { gin.SetMode(gin.TestMode) }

func TestNewServerDefaults(t *testing.T) {
	s := NewServer(WithLogger(zerolog.Nop()))
	if s.Engine == nil {
		t.Fatal("Engine should not be nil")
	}
	if s.Addr() != ":8080" {
		t.Errorf("expected default addr :8080, got %s", s.Addr())
	}
	if s.shutdownDur != 5*time.Second {
		t.Errorf("expected default shutdown duration 5s, got %v", s.shutdownDur)
	}
}

func TestNewServerWithOptions(t *testing.T) {
	s := NewServer(WithAddress(":12345"), WithShutdownTimeout(2*time.Second), WithLogger(zerolog.Nop()))
	if s.Addr() != ":12345" {
		t.Errorf("expected addr :12345, got %s", s.Addr())
	}
	if s.shutdownDur != 2*time.Second {
		t.Errorf("expected shutdownDur 2s, got %v", s.shutdownDur)
	}
}

func TestRequestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"path":"/ping"`) || !strings.Contains(out, `"status":200`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := NewEngine(zerolog.Nop())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func TestRecoveryLogsPanics(t *testing.T) {
	var buf bytes.Buffer
	r := NewEngine(zerolog.New(&buf))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	var buf bytes.Buffer
	s := NewServer(WithAddress("127.0.0.1:0"), WithShutdownTimeout(time.Second), WithLogger(zerolog.New(&buf)))
	s.Engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	if err := s.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	if strings.HasSuffix(s.Addr(), ":0") {
		t.Fatalf("address not resolved: %s", s.Addr())
	}

	resp, err := http.Get("http://" + s.Addr() + "/ping")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "REST server started") {
		t.Fatal("start message not found in logs")
	}
}

func BenchmarkRequestLogger(b *testing.B) {
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for i := 0; i < b.N; i++ {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
}
