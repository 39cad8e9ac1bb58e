// Package logging builds the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vikasavnish/heirloom/internal/config"
)

var (
	mu     sync.RWMutex
	once   sync.Once
	logger *logrus.Logger
)

// New returns a logger configured from cfg. Unknown levels fall back to info.
func New(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Get returns the shared logger, creating a default one on first use.
func Get() *logrus.Logger {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if logger == nil {
			logger = New(config.LogConfig{Level: "info"}, os.Stderr)
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Set replaces the shared logger.
func Set(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}
