package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/syslog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/config"
)

// ParseLevel maps a configured level (DEBUG, INFO, WARN, ERROR, FATAL, any
// case) to a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
}

// ApplyLevel sets the global log level. It is the only setting that changes
// on a live config reload.
func ApplyLevel(s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// logSinks holds the writers a logger fans out to, for closing at shutdown.
type logSinks struct {
	closers []io.Closer
}

func (s *logSinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the logging section.
// Console, file and syslog targets can be combined. With no target enabled
// the logger writes to stderr.
func NewLogger(cfg config.LoggingConfig, stdout io.Writer) (zerolog.Logger, io.Closer, error) {
	sinks := &logSinks{}

	if err := ApplyLevel(cfg.Level); err != nil {
		return zerolog.Nop(), sinks, err
	}

	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, formatWriter(cfg.Format, stdout))
	}

	if cfg.File.Enabled {
		f, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			sinks.Close()
			return zerolog.Nop(), sinks, fmt.Errorf("open log file %s: %w", cfg.File.Path, err)
		}
		sinks.closers = append(sinks.closers, f)
		writers = append(writers, f)
	}

	if cfg.Syslog.Enabled {
		w, err := syslog.Dial("udp", cfg.Syslog.Address, syslog.LOG_INFO|syslog.LOG_DAEMON, "hsdsgate")
		if err != nil {
			sinks.Close()
			return zerolog.Nop(), sinks, fmt.Errorf("dial syslog %s: %w", cfg.Syslog.Address, err)
		}
		sinks.closers = append(sinks.closers, w)
		writers = append(writers, zerolog.SyslogLevelWriter(w))
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = formatWriter(cfg.Format, os.Stderr)
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(out).With().Timestamp().Logger(), sinks, nil
}

func formatWriter(format string, w io.Writer) io.Writer {
	if format == "console" {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return w
}
