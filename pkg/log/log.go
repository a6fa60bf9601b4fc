// Package log configures the logrus standard logger.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string     `mapstructure:"level" yaml:"level"`
	Format string     `mapstructure:"format" yaml:"format"` // text | json
	File   FileConfig `mapstructure:"file" yaml:"file"`
}

type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Validate checks the level and format names.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return errors.Errorf("invalid log format: %s", c.Format)
	}
	if c.File.Enabled && c.File.Path == "" {
		return errors.New("log file enabled without a path")
	}
	return nil
}

// Apply configures logger. The returned closer releases the log file, if
// any.
func Apply(logger *logrus.Logger, cfg Config) (io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := logrus.ParseLevel(cfg.Level)
	logger.SetLevel(level)

	if strings.ToLower(cfg.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if !cfg.File.Enabled {
		logger.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File.Path,
		MaxSize:    cfg.File.MaxSizeMB,  // megabytes
		MaxBackups: cfg.File.MaxBackups, // number of backups
		MaxAge:     cfg.File.MaxAgeDays, // days
		Compress:   cfg.File.Compress,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return file, nil
}

// Setup configures the standard logger.
func Setup(cfg Config) (io.Closer, error) {
	return Apply(logrus.StandardLogger(), cfg)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
