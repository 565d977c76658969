/*
Package mdelog provides the engine's structured logging setup.

Code that logs takes a child logger via With(component) rather than
writing to the global logger directly, so a single log line can be
filtered by component in production. Package engine is currently the
only caller; store, cache, btree, wal and txn do not log:

	log := mdelog.With("wal")
	log.Debug().Uint64("sequence", seq).Msg("appended record")
*/
package mdelog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger used by code that has not been
// handed a component-scoped logger explicitly.
var Logger zerolog.Logger

// Level mirrors the engine's four supported verbosity levels.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls global logger construction.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

func init() {
	// Sensible default so package consumers (tests, library use) never
	// see a disabled logger before Init is called explicitly.
	Init(Config{Level: InfoLevel})
}

// Init (re)configures the package-level Logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}

	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// With returns a child logger tagged with the given component name.
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
