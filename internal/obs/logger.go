// Package obs wires up structured logging for the engine, grounded on
// NayanaChandrika99-DocReasoner/tree_db/internal/logger's zerolog wrapper.
// The pager logs a warning when Open finds a stale journal and an info
// line when recovery completes; the VM logs at debug only for the Debug
// opcode. The VM's own opcode dispatch loop does not log per instruction.
package obs

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the logger's level and rendering.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Empty means "info".
	Level string
	// Pretty enables console-writer rendering for interactive use
	// (cmd/kellerdb); false gives newline-delimited JSON for production.
	Pretty bool
	// Output defaults to os.Stderr so stdout stays free for query results.
	Output io.Writer
}

// New builds a zerolog.Logger per cfg, with a timestamp and a "service"
// field set to "kellerdb".
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "kellerdb").Logger()
}

// SetGlobal installs l as the package-level logger used by the log.Warn() /
// log.Info() / log.Debug() call sites in internal/pager and internal/vm —
// matching how those packages already reach for
// github.com/rs/zerolog/log directly rather than threading a logger
// through every constructor.
func SetGlobal(l zerolog.Logger) {
	log.Logger = l
}
