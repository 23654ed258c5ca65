package bakestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold marks queries worth a warning. One second accommodates
// migration batches without flagging normal catalog traffic.
const slowQueryThreshold = time.Second

// gormSlogBridge routes gorm's logging through the package slog logger.
type gormSlogBridge struct {
	logger *slog.Logger
	level  gormlogger.LogLevel
}

func newGormLogger(logger *slog.Logger) gormlogger.Interface {
	return &gormSlogBridge{logger: logger, level: gormlogger.Warn}
}

func (g *gormSlogBridge) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormSlogBridge) Info(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *gormSlogBridge) Warn(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *gormSlogBridge) Error(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.logger.Error(fmt.Sprintf(msg, args...))
	}
}

func (g *gormSlogBridge) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.logger.Error("query failed",
			"error", err,
			"sql", sql,
			"rows", rows,
			"elapsed_ms", float64(elapsed.Nanoseconds())/1e6)
	case elapsed > slowQueryThreshold:
		sql, rows := fc()
		g.logger.Warn("slow query",
			"sql", sql,
			"rows", rows,
			"elapsed_ms", float64(elapsed.Nanoseconds())/1e6)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.logger.Debug("query",
			"sql", sql,
			"rows", rows,
			"elapsed_ms", float64(elapsed.Nanoseconds())/1e6)
	}
}
