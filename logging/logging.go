// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup sets the standard logger's level and format.  format is "text" or
// "json"; empty means text.
func Setup(level, format string) error {
	return configure(log.StandardLogger(), os.Stderr, level, format)
}

func configure(l *log.Logger, out io.Writer, level, format string) error {
	lvl := log.InfoLevel
	if strings.TrimSpace(level) != "" {
		var err error
		if lvl, err = log.ParseLevel(level); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("log format %q: want text or json", format)
	}

	l.SetOutput(out)
	l.SetLevel(lvl)
	return nil
}
