// Package log provides structured, colored logging for the wallet core.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers for different parts of the wallet.
var (
	Wallet   zerolog.Logger
	Ledger   zerolog.Logger
	Session  zerolog.Logger
	RPC      zerolog.Logger
	UTXO     zerolog.Logger
	Transfer zerolog.Logger
	Storage  zerolog.Logger
	REST     zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stderr, "info")
	initComponentLoggers()
}

// Init initializes the logger with the given configuration.
// When file is non-empty, logs go to both the console and the file. The
// file always receives JSON.
func Init(level string, jsonOutput bool, file string) error {
	lvl := parseLevel(level)

	var console io.Writer = os.Stderr
	if !jsonOutput {
		console = consoleWriter(os.Stderr)
	}

	out := console
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(console, f)
	}

	Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	initComponentLoggers()
	return nil
}

// Disable silences every logger. Used by the CLI's quiet mode and tests.
func Disable() {
	Logger = zerolog.Nop()
	initComponentLoggers()
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(consoleWriter(w)).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func initComponentLoggers() {
	Wallet = WithComponent("wallet")
	Ledger = WithComponent("ledger")
	Session = WithComponent("session")
	RPC = WithComponent("rpc")
	UTXO = WithComponent("utxo")
	Transfer = WithComponent("transfer")
	Storage = WithComponent("storage")
	REST = WithComponent("rest")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithNetwork returns a logger with a network field.
func WithNetwork(l zerolog.Logger, network string) zerolog.Logger {
	return l.With().Str("network", network).Logger()
}

// Benchmark helper for timing operations.
func Benchmark(name string) func() {
	start := time.Now()
	return func() {
		Logger.Debug().
			Str("operation", name).
			Dur("duration", time.Since(start)).
			Msg("benchmark")
	}
}

// BadgerLogger adapts a zerolog logger to badger's Logger interface.
// Badger's info chatter is demoted to debug.
type BadgerLogger struct {
	L zerolog.Logger
}

func (b BadgerLogger) Errorf(format string, args ...interface{}) {
	b.L.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b BadgerLogger) Warningf(format string, args ...interface{}) {
	b.L.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b BadgerLogger) Infof(format string, args ...interface{}) {
	b.L.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b BadgerLogger) Debugf(format string, args ...interface{}) {
	b.L.Trace().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
