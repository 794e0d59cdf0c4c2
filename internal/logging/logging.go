// Package logging builds the slog logger used by long-running commands.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger writes to stdout and, when a path is given, appends to a file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a text logger. An empty logPath logs to stdout only.
func New(logPath string, level slog.Level) (*Logger, error) {
	writers := []io.Writer{os.Stdout}

	var file *os.File
	if logPath != "" {
		var err error
		file, err = os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler), file: file}, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
