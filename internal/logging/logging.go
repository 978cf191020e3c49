package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Initialized here so tests and library callers get a usable logger without
// going through main.
func init() {
	Init("info", "text")
}

// Init (re)configures the process logger. format is "text" or "json"; an
// unknown level falls back to info.
func Init(level, format string) {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	Log = logger.WithField("service", "hotboard")
}

// Platform returns a logger scoped to one platform.
func Platform(name string) *logrus.Entry {
	return Log.WithField("platform", name)
}
