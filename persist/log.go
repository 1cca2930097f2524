// Package persist provides small, dependency-free utilities for giving a
// long-running process durable on-disk state: currently just a leveled file
// logger. It exists so that every other package in nodeshub logs through one
// consistent mechanism instead of ad-hoc fmt.Println calls.
package persist

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const persistDir = "persist"

// Logger wraps the standard library's log.Logger, bracketing a log file's
// lifetime with STARTUP and SHUTDOWN lines so that operators can tell a
// clean shutdown from a crash by looking at the tail of the file.
type Logger struct {
	*log.Logger

	mu     sync.Mutex
	closer io.Closer
	closed bool
}

// NewLogger returns a logger that writes to the file at logFilename,
// creating the file if it does not exist. The parent directory must already
// exist; it is not created.
func NewLogger(logFilename string) (*Logger, error) {
	file, err := os.OpenFile(logFilename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	return newLogger(file, file)
}

// NewFileLogger is an alias of NewLogger kept for symmetry with the broader
// family of persist constructors (NewLogger for files, NewTeeLogger for
// tests that also want output on stderr).
func NewFileLogger(logFilename string) (*Logger, error) {
	return NewLogger(logFilename)
}

// NewTeeLogger returns a logger that writes every line to w in addition to
// the underlying file, e.g. to mirror the log onto stderr in tests.
func NewTeeLogger(logFilename string, w io.Writer) (*Logger, error) {
	file, err := os.OpenFile(logFilename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	return newLogger(io.MultiWriter(file, w), file)
}

func newLogger(w io.Writer, closer io.Closer) (*Logger, error) {
	l := &Logger{
		Logger: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile|log.LUTC),
		closer: closer,
	}
	l.Println("STARTUP: nodeshub logging has started at", time.Now().Format(time.RFC3339))
	return l, nil
}

// Close logs a shutdown line and closes the underlying file. It is safe to
// call Close more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.Println("SHUTDOWN: nodeshub logging has terminated.")
	return l.closer.Close()
}

// Debugln is an alias for Println kept so call sites can mark intentionally
// verbose diagnostic logging without changing behavior.
func (l *Logger) Debugln(v ...interface{}) {
	l.Println(v...)
}

// Debugf is an alias for Printf kept for the same reason as Debugln.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.Printf(format, v...)
}
