package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/projpool/projpool/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// OpenORM binds gorm to the existing pool, so both share the same connections.
// Closing the returned DB does not close the pool.
func OpenORM(pool *pgxpool.Pool, l logger.Logger) (*gorm.DB, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)

	orm, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{
			Logger: newORMLogger(l),
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
			TranslateError: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("cant bind orm to pool. Err: %w", err)
	}

	return orm, nil
}

// ormLogger routes gorm logs to the app logger
type ormLogger struct {
	logger logger.Logger
	level  gormlogger.LogLevel
}

// Logs of the ORM go under "orm" group of l; l itself is expected to be ungrouped
func newORMLogger(l logger.Logger) *ormLogger {
	return &ormLogger{logger: l.WithGroup("orm"), level: gormlogger.Warn}
}

func (l *ormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &ormLogger{logger: l.logger, level: level}
}

func (l *ormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *ormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *ormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *ormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.logger.Error("orm query failed", "sql", sql, "rows", rows, "duration", elapsed, "error", err)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn("orm slow query", "sql", sql, "rows", rows, "duration", elapsed)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Debug("orm query", "sql", sql, "rows", rows, "duration", elapsed)
	}
}
