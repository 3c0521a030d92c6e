package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter provides a unified interface for both single and multi-logger
type LoggerAdapter struct {
	multiLogger  *MultiLogger
	singleLogger *zap.Logger
	useMulti     bool
}

// NewLoggerAdapter creates a new logger adapter. general receives everything
// that does not belong to a category.
func NewLoggerAdapter(multiLogger *MultiLogger, general *zap.Logger) *LoggerAdapter {
	if general == nil {
		general = zap.NewNop()
	}
	return &LoggerAdapter{
		multiLogger:  multiLogger,
		singleLogger: general,
		useMulti:     multiLogger != nil,
	}
}

// NewSingleLoggerAdapter creates an adapter that sends every category to one logger
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerAdapter{
		singleLogger: logger,
		useMulti:     false,
	}
}

// Access returns the HTTP access logger
func (la *LoggerAdapter) Access() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Access()
	}
	return la.singleLogger
}

// Download returns the download telemetry logger
func (la *LoggerAdapter) Download() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Download()
	}
	return la.singleLogger
}

// Session returns the session lifecycle logger
func (la *LoggerAdapter) Session() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Session()
	}
	return la.singleLogger
}

// Error returns the error logger
func (la *LoggerAdapter) Error() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Error()
	}
	return la.singleLogger
}

// General returns the general logger
func (la *LoggerAdapter) General() *zap.Logger {
	return la.singleLogger
}

// LogError logs an error to both the general and error logs
func (la *LoggerAdapter) LogError(msg string, fields ...zap.Field) {
	la.singleLogger.Error(msg, fields...)
	if la.useMulti {
		la.multiLogger.LogAppError(msg, fields...)
	}
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.useMulti {
		if err := la.multiLogger.Sync(); err != nil {
			return err
		}
	}
	return la.singleLogger.Sync()
}

// GetMultiLogger returns the underlying multi-logger (if available)
func (la *LoggerAdapter) GetMultiLogger() *MultiLogger {
	return la.multiLogger
}
