package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// GormAdapter routes gorm's statement logging through the store logger
type GormAdapter struct {
	logger        *Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormAdapter creates a gorm logger backed by l, filtered by an
// application level string (debug shows every statement)
func NewGormAdapter(l *Logger, level string) *GormAdapter {
	return &GormAdapter{
		logger:        l,
		logLevel:      gormLevel(ParseLevel(level)),
		slowThreshold: defaultSlowQuery,
	}
}

// LogMode implements gormlogger.Interface
func (g *GormAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.logLevel = level
	return &clone
}

// Info implements gormlogger.Interface
func (g *GormAdapter) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Info {
		g.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface
func (g *GormAdapter) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Warn {
		g.logger.WithFields(nil).WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface
func (g *GormAdapter) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Error {
		g.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...), nil)
	}
}

// Trace logs a finished statement. Record-not-found is an expected outcome
// for account lookups and is never reported as an error.
func (g *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := map[string]interface{}{
		"sql":        sql,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.logLevel >= gormlogger.Error:
		g.logger.WithFields(fields).Error("store query failed", err)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.logLevel >= gormlogger.Warn:
		g.logger.WithFields(fields).WarnContext(ctx, "slow store query")
	case g.logLevel >= gormlogger.Info:
		g.logger.WithFields(fields).Debug("store query")
	}
}

func gormLevel(level Level) gormlogger.LogLevel {
	switch level {
	case LevelDebug:
		return gormlogger.Info
	case LevelError:
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
