// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/sightline/internal/config"
)

// Setup applies the configured level and formatter to the standard logger
// and directs its output to out.
func Setup(cfg config.LogConfig, out io.Writer) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	if out != nil {
		log.SetOutput(out)
	}
	return nil
}
