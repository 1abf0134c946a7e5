package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the JSON logger shared by workflows, handlers and tools.
// LOG_LEVEL accepts any logrus level name (default "info").
func NewLogger() *logrus.Logger {
	logg := logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)
	return logg
}

func logFields(moduleName, funcName, context string, data any) logrus.Fields {
	fields := logrus.Fields{"module": moduleName, "funcName": funcName}
	if context != "" {
		fields["context"] = context
	}
	if data != nil {
		fields["data"] = data
	}
	return fields
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if logger == nil || err == nil {
		return
	}
	logger.WithFields(logFields(moduleName, funcName, context, data)).Error(err.Error())
}

// LogWarning records recoverable conditions such as ledger gaps and decode fallbacks.
func LogWarning(logger *logrus.Logger, moduleName string, funcName string, message string, data any) {
	if logger == nil {
		return
	}
	logger.WithFields(logFields(moduleName, funcName, "", data)).Warn(message)
}
