package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// QueryLogConfig controls which statements reach the log.
type QueryLogConfig struct {
	// Level uses the application level names (debug, info, warn, error).
	// debug logs every statement, error only failures.
	Level     string
	SlowQuery time.Duration
}

// QueryLogger adapts gorm's logger interface to zap. Bound parameters are
// never logged since they carry customer emails and phone numbers.
type QueryLogger struct {
	base *zap.Logger
	mode gormlogger.LogLevel
	slow time.Duration
}

func NewQueryLogger(base *zap.Logger, cfg QueryLogConfig) *QueryLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &QueryLogger{
		base: base.Named("db"),
		mode: modeForLevel(cfg.Level),
		slow: cfg.SlowQuery,
	}
}

func modeForLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	case "silent", "off":
		return gormlogger.Silent
	default:
		return gormlogger.Warn
	}
}

func (l *QueryLogger) LogMode(mode gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.mode = mode
	return &next
}

func (l *QueryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, args)
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, args)
}

func (l *QueryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, args)
}

func (l *QueryLogger) message(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, args []interface{}) {
	if l.mode < min {
		return
	}
	WithContext(ctx, l.base).Log(level, msg, zap.Any("args", args))
}

func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.mode == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	// Missing rows are the normal "not found" path for every repository.
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := l.slow > 0 && elapsed > l.slow

	var level zapcore.Level
	switch {
	case failed && l.mode >= gormlogger.Error:
		level = zapcore.ErrorLevel
	case slow && l.mode >= gormlogger.Warn:
		level = zapcore.WarnLevel
	case l.mode >= gormlogger.Info:
		level = zapcore.DebugLevel
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("operation", operationFromSQL(sql)),
		zap.String("table", tableFromSQL(sql)),
		zap.Duration("elapsed", elapsed),
		zap.String("sql", strings.TrimSpace(sql)),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	if slow {
		fields = append(fields, zap.Bool("slow", true))
	}
	if failed {
		fields = append(fields, zap.Error(err))
	}
	WithContext(ctx, l.base).Log(level, "db.query", fields...)
}

func (l *QueryLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func operationFromSQL(sql string) string {
	for _, word := range strings.Fields(strings.ToUpper(sql)) {
		word = strings.Trim(word, "();")
		switch word {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			return word
		}
	}
	return "UNKNOWN"
}

var tablePattern = regexp.MustCompile(`(?i)\b(?:from|into|update)\s+["` + "`" + `]?([a-z_][a-z0-9_]*)`)

// tableFromSQL picks the first table a statement touches.
func tableFromSQL(sql string) string {
	m := tablePattern.FindStringSubmatch(sql)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

var _ gormlogger.Interface = (*QueryLogger)(nil)
