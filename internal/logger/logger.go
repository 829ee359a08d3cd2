// Package logger provides a process-wide zap logger.
package logger

import "go.uber.org/zap"

var Logger *zap.Logger

func Init() error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}
	return nil
}

func GetLogger() *zap.Logger {
	if Logger == nil {
		Logger, _ = zap.NewProduction()
	}
	return Logger
}

// Named returns a child logger scoped to a component, e.g. "chunking"
// or "retriever".
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
