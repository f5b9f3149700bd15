// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the structured logger shared by the client,
// the poller and the devserver.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"

	"github.com/pdiddy/research-summarizer/pkg/types"
)

// DefaultFile is where interactive commands log, since the TUI owns the terminal.
const DefaultFile = "research-summarizer.log"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger configured from cfg and a closer for its output.
// An empty cfg.File logs JSON lines to stderr.
func New(cfg types.LogConfig) (*log.Logger, io.Closer, error) {
	level := log.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if strings.TrimSpace(cfg.Level) == "" {
		level = log.InfoLevel
	}

	if cfg.File == "" {
		return &log.Logger{
			Level:  level,
			Writer: &log.IOWriter{Writer: os.Stderr},
		}, nopCloser{}, nil
	}

	if dir := filepath.Dir(cfg.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
	}
	return &log.Logger{
		Level:  level,
		Writer: &log.IOWriter{Writer: f},
	}, f, nil
}

// Discard returns a logger that drops everything. Components fall back to
// it when no logger is injected.
func Discard() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// To returns a debug-level logger writing to w. Tests use it to assert on
// diagnostics.
func To(w io.Writer) *log.Logger {
	return &log.Logger{
		Level:  log.DebugLevel,
		Writer: &log.IOWriter{Writer: w},
	}
}
