// Package gate routes diagnostic output through secret redaction before it
// reaches any sink. Nothing should write operator-visible lines except
// through a Gate; the unsanitized sink stays reachable only via Raw, for
// deliberate debugging.
package gate

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ashmarin/trailguard/internal/redact"
)

// Sink receives diagnostic lines at three levels. Arguments may be any
// value; implementations render them.
type Sink interface {
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
}

// Gate wraps a Sink and sanitizes every argument before delegating.
type Gate struct {
	inner Sink
}

// Wrap returns a sanitizing gate over s. Wrapping is idempotent: a Sink
// that is already a *Gate is returned unchanged, so double installation
// cannot stack redaction passes or hide the raw sink another level down.
func Wrap(s Sink) *Gate {
	if g, ok := s.(*Gate); ok {
		return g
	}
	return &Gate{inner: s}
}

// Raw returns the original, unsanitized sink. Debugging use only.
func (g *Gate) Raw() Sink { return g.inner }

// Info sanitizes args and forwards them at info level.
func (g *Gate) Info(args ...any) { g.inner.Info(sanitizeAll(args)...) }

// Warn sanitizes args and forwards them at warn level.
func (g *Gate) Warn(args ...any) { g.inner.Warn(sanitizeAll(args)...) }

// Error sanitizes args and forwards them at error level. Error-shaped
// arguments take the error rendering path inside Sanitize.
func (g *Gate) Error(args ...any) { g.inner.Error(sanitizeAll(args)...) }

func sanitizeAll(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = redact.Sanitize(a)
	}
	return out
}

// ConsoleSink writes to the process-wide zerolog logger.
type ConsoleSink struct {
	logger zerolog.Logger
}

// NewConsoleSink returns a sink over the global zerolog logger.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{logger: log.Logger}
}

// NewConsoleSinkTo returns a sink writing human-readable output to the
// given file, for CLI use.
func NewConsoleSinkTo(f *os.File) *ConsoleSink {
	return &ConsoleSink{logger: zerolog.New(zerolog.ConsoleWriter{Out: f}).With().Timestamp().Logger()}
}

func (c *ConsoleSink) Info(args ...any)  { c.emit(c.logger.Info(), args) }
func (c *ConsoleSink) Warn(args ...any)  { c.emit(c.logger.Warn(), args) }
func (c *ConsoleSink) Error(args ...any) { c.emit(c.logger.Error(), args) }

func (c *ConsoleSink) emit(ev *zerolog.Event, args []any) {
	msg := ""
	for i, a := range args {
		if i > 0 {
			msg += " "
		}
		msg += redact.Render(a)
	}
	ev.Msg(msg)
}
