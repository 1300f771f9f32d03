package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the logger configuration
type Config struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"` // "json" or "console"
	TimeFormat string `json:"time_format" mapstructure:"time_format"`
	Output     string `json:"output" mapstructure:"output"` // "stdout", "stderr", "discard" or file path
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stdout",
	}
}

// Init configures the process logger. Only cmd/ entrypoints should call it;
// libraries take a zerolog.Logger instead.
func Init(config *Config) error {
	l, level, err := build(config)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = config.TimeFormat
	log.Logger = l
	return nil
}

// New builds a standalone logger without touching zerolog globals.
func New(config *Config) (zerolog.Logger, error) {
	l, level, err := build(config)
	if err != nil {
		return zerolog.Nop(), err
	}
	return l.Level(level), nil
}

func build(config *Config) (zerolog.Logger, zerolog.Level, error) {
	if config == nil {
		config = DefaultConfig()
	}
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return zerolog.Nop(), zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", config.Level, err)
	}

	var output io.Writer
	switch config.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	case "discard":
		output = io.Discard
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return zerolog.Nop(), zerolog.NoLevel, fmt.Errorf("open log output: %w", err)
		}
		output = file
	}

	if config.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: config.TimeFormat}
	}
	return zerolog.New(output).With().Timestamp().Logger(), level, nil
}

// GetLogger returns the process logger
func GetLogger() *zerolog.Logger {
	return &log.Logger
}

// WithComponent returns a child of base tagged with a component field.
func WithComponent(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
