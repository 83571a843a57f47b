package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/faultline/logger"
)

// maxLoggedSQL caps statement text in logs. Upserts of error entries inline
// the whole payload.
const maxLoggedSQL = 256

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

func gormLevel(name string) gormlogger.LogLevel {
	if lvl, ok := gormLevels[name]; ok {
		return lvl
	}
	return gormlogger.Warn
}

// queryLog sends GORM output to the faultline logger, carrying the request
// ID from the statement context.
type queryLog struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLog(log *logger.Logger, slow time.Duration, level gormlogger.LogLevel) *queryLog {
	return &queryLog{log: log.WithComponent("gorm"), level: level, slow: slow}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *queryLog) Info(ctx context.Context, msg string, args ...interface{}) {
	if q.level >= gormlogger.Info {
		q.log.WithContext(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Warn(ctx context.Context, msg string, args ...interface{}) {
	if q.level >= gormlogger.Warn {
		q.log.WithContext(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Error(ctx context.Context, msg string, args ...interface{}) {
	if q.level >= gormlogger.Error {
		q.log.WithContext(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs failed statements at error, slow ones at warn and, at the info
// level, everything else at debug. A missing row is not a failure.
func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && took > q.slow

	log := q.log.WithContext(ctx)
	emit, msg := log.Debug, "query"
	switch {
	case failed && q.level >= gormlogger.Error:
		emit, msg = log.Error, "query failed"
	case slow && q.level >= gormlogger.Warn:
		emit, msg = log.Warn, "slow query"
	case q.level < gormlogger.Info:
		return
	}

	stmt, rows := fc()
	fields := logger.Fields("sql", clip(stmt), "duration", took.String(), "rows", rows)
	if failed {
		fields["error"] = err.Error()
	}
	emit(msg, fields)
}

func clip(stmt string) string {
	if len(stmt) <= maxLoggedSQL {
		return stmt
	}
	return stmt[:maxLoggedSQL] + fmt.Sprintf("... (%d bytes)", len(stmt))
}
