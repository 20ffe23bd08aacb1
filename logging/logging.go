// Package logging builds the batch logger. Every run writes a
// timestamped log file next to the tiles so a finished batch leaves its
// own record behind; the console gets a human readable copy.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level string
	Quiet bool
	// Dir receives the log file. Empty disables file logging.
	Dir string
}

// Build returns the run logger and a closer for the log file. The
// closer is never nil.
func Build(cfg Config) (zerolog.Logger, io.Closer, error) {
	writers := make([]io.Writer, 0, 2)
	closer := io.Closer(nopCloser{})

	if cfg.Dir != "" {
		name := "tiling_" + time.Now().Format("2006-01-02_15_04_05") + ".log"
		file, err := os.Create(filepath.Join(cfg.Dir, name))
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("creating log file: %w", err)
		}
		writers = append(writers, file)
		closer = file
	}
	if !cfg.Quiet {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseLevel(cfg.Level)).
		With().Timestamp().Logger()
	return logger, closer, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
