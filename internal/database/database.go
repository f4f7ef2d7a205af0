// Package database wraps the single Postgres GORM connection shared by
// every read model, checkpoint table and the retry queue. The event
// log itself lives outside this package (internal/eventstore talks to
// Postgres directly through database/sql) — this wrapper exists for
// the ancillary tables that don't need raw SQL's precision.
package database

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

const defaultSlowThreshold = 200 * time.Millisecond

// DB embeds *gorm.DB so callers use it exactly like a GORM handle.
type DB struct {
	*gorm.DB
}

// Open connects to dsn and configures GORM the way database/database.go
// does — prepared statements, a slog-backed query logger — trimmed to
// the single postgres dialector this repo needs (the teacher's
// mysql/clickhouse switch has no consumer here: every table in this
// spec lives in one Postgres instance).
func Open(dsn string, log *logging.Logger) (*DB, error) {
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:       gormLogger{log: log.With("gorm"), slowThreshold: defaultSlowThreshold},
		PrepareStmt:  true,
		QueryFields:  false,
	})
	if err != nil {
		return nil, xerrors.TransientInfra("open gorm database", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, xerrors.PermanentInfra("obtain sql.DB from gorm", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{DB: gormDB}, nil
}

// AutoMigrate creates or updates the read-model, checkpoint and queue
// tables owned by this connection.
func (d *DB) AutoMigrate(models ...any) error {
	if err := d.DB.AutoMigrate(models...); err != nil {
		return xerrors.PermanentInfra("auto-migrate schema", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormLogger adapts *logging.Logger to gorm's logger.Interface so slow
// or failed queries flow through the same structured log sink as
// everything else instead of GORM's own default logger.
type gormLogger struct {
	log           *logging.Logger
	slowThreshold time.Duration
}

func (l gormLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l gormLogger) Info(_ context.Context, msg string, args ...any) {
	l.log.Info(msg, "args", args)
}

func (l gormLogger) Warn(_ context.Context, msg string, args ...any) {
	l.log.Warn(msg, "args", args)
}

func (l gormLogger) Error(_ context.Context, msg string, args ...any) {
	l.log.Error(msg, "args", args)
}

func (l gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	switch {
	case err != nil:
		l.log.Error("query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed > l.slowThreshold:
		l.log.Warn("slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	default:
		l.log.Debug("query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
