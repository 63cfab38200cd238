package api

import (
	"strings"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/wilhasse/hfs-go/btr"
)

// ServiceName tags every log line written by the engine.
const ServiceName = "btreserve"

// LoggerInit sets the process logger to level and returns the engine's
// service logger. Level is one of the logger package levels (DEBUG, INFO,
// NOOP, ...).
func LoggerInit(level string) btr.Logger {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = "INFO"
	}
	logger.New(level)
	return logger.Sugar.WithServiceName(ServiceName)
}

// LoggerShutdown flushes the process logger.
func LoggerShutdown() {
	logger.OnExit()
}
