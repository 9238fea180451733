// Package logging builds the process logger: human-readable console output
// on stderr plus JSON lines in the log directory, tagged with a run ID.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const FileName = "songsmith.log"

// Run is the logging context of one process invocation.
type Run struct {
	ID     string
	Logger zerolog.Logger

	file *os.File
}

// Setup creates the run logger. An empty dir logs to the console only.
func Setup(dir string, debug bool) (*Run, error) {
	return setup(os.Stderr, dir, debug)
}

func setup(console io.Writer, dir string, debug bool) (*Run, error) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	run := &Run{ID: NewRunID()}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		run.file = f
		writers = append(writers, f)
	}

	run.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("run", run.ID).
		Logger()

	return run, nil
}

func (r *Run) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// NewRunID returns a short unique identifier.
func NewRunID() string {
	return uuid.NewString()[:8]
}
