package harness

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

// New sets up a fixture for t and tears it down in t.Cleanup. Setup errors
// fail the test immediately.
func New(t testing.TB, env *Environment, opts ...Option) *Fixture {
	t.Helper()
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Log == nil {
		l := LoggerFor(t)
		o.Log = &l
	}
	f, err := env.Setup(context.Background(), o)
	if err != nil {
		t.Fatalf("harness setup: %v", err)
	}
	t.Cleanup(func() {
		if err := f.Teardown(); err != nil {
			t.Errorf("harness teardown: %v", err)
		}
	})
	return f
}

// LoggerFor returns a debug console logger that writes through t.Log, so
// output stays attached to the test that produced it.
func LoggerFor(t testing.TB) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: testWriter{t}, NoColor: true, TimeFormat: time.Kitchen}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
}

type testWriter struct{ t testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Suite runs a fresh fixture around every test of a testify suite.
//
//	type ContentSuite struct{ harness.Suite }
//
//	func TestContent(t *testing.T) {
//		suite.Run(t, &ContentSuite{Suite: harness.Suite{Env: env}})
//	}
//
// Set Options before suite.Run to override hooks. A suite that embeds Suite
// and defines its own setup or teardown methods must call the embedded ones.
type Suite struct {
	suite.Suite

	Env     *Environment
	Options Options
	Fixture *Fixture

	ownsEnv bool
}

// SetupSuite creates an environment when none was given.
func (s *Suite) SetupSuite() {
	if s.Env == nil {
		s.Env = NewEnvironment()
		s.ownsEnv = true
	}
}

// TearDownSuite closes an environment created by SetupSuite.
func (s *Suite) TearDownSuite() {
	if s.ownsEnv {
		s.Require().NoError(s.Env.Close())
	}
}

func (s *Suite) SetupTest() {
	f, err := s.Env.Setup(context.Background(), s.Options)
	s.Require().NoError(err, "harness setup")
	s.Fixture = f
}

func (s *Suite) TearDownTest() {
	if s.Fixture == nil {
		return
	}
	err := s.Fixture.Teardown()
	s.Fixture = nil
	s.Require().NoError(err, "harness teardown")
}
