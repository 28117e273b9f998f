// Package logging provides the engine's process-global log ring buffer.
//
// Every internal package logs through a shared zerolog.Logger whose writer is
// a bounded ring buffer of formatted lines instead of stderr. The external API
// surface exposes that buffer one line at a time (Pop) so a host process that
// has no access to the engine's stdout/stderr can still retrieve diagnostics.
package logging

import (
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors the external log-level enum from the engine's API surface.
type Level uint32

const (
	LevelError   Level = 0
	LevelWarn    Level = 1
	LevelInfo    Level = 2
	LevelVerbose Level = 3
)

const defaultCapacity = 512

// ring is a bounded circular buffer of formatted log lines. Oldest lines are
// dropped once capacity is reached so a runaway log source cannot grow memory
// without bound.
type ring struct {
	mu       sync.Mutex
	lines    []string
	capacity int
}

func newRing(capacity int) *ring {
	return &ring{lines: make([]string, 0, capacity), capacity: capacity}
}

func (r *ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := string(p)
	if len(r.lines) >= r.capacity {
		r.lines = r.lines[1:]
	}
	r.lines = append(r.lines, line)
	return len(p), nil
}

func (r *ring) pop() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.lines) == 0 {
		return "", false
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, true
}

var (
	buf      = newRing(defaultCapacity)
	level    = zerolog.InfoLevel
	levelMu  sync.Mutex
	rootOnce sync.Once
	root     zerolog.Logger
)

func levelToZerolog(l Level) zerolog.Level {
	switch l {
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelVerbose:
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

func initRoot() {
	root = zerolog.New(buf).With().Timestamp().Logger().Level(level)
}

// Logger returns the shared logger. Safe for concurrent use; all callers
// share the same ring buffer and level.
func Logger() *zerolog.Logger {
	rootOnce.Do(initRoot)
	return &root
}

// SetLevel adjusts the minimum severity written to the ring buffer.
func SetLevel(l Level) {
	levelMu.Lock()
	defer levelMu.Unlock()

	level = levelToZerolog(l)
	rootOnce.Do(initRoot)
	root = root.Level(level)
}

// Pop removes and returns the oldest buffered line, if any.
func Pop() (string, bool) {
	return buf.pop()
}

// Reset clears the ring buffer. Exposed for tests.
func Reset() {
	buf.mu.Lock()
	buf.lines = buf.lines[:0]
	buf.mu.Unlock()
}
