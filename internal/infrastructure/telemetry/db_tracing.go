package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures GORM instrumentation
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBName          string
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm spans plus a slow query logger.
// Query variables are left out of spans unless LogFullSQL is set.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgresql"
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if cfg.SlowQueryThresh > 0 {
		if err := registerSlowQueryCallbacks(db, cfg.SlowQueryThresh, logger); err != nil {
			return err
		}
	}
	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func registerSlowQueryCallbacks(db *gorm.DB, thresh time.Duration, logger *zap.Logger) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		if tx.Statement.Context == nil {
			return
		}
		start, ok := tx.Statement.Context.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		if elapsed < thresh {
			return
		}
		span := trace.SpanFromContext(tx.Statement.Context)
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
		logger.Warn("Slow query",
			zap.String("table", tx.Statement.Table),
			zap.Duration("duration", elapsed),
			zap.Int64("rows", tx.RowsAffected),
		)
	}

	cb := db.Callback()
	steps := []func() error{
		func() error {
			if err := cb.Create().Before("gorm:create").Register("slow_query:before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("slow_query:after_create", after)
		},
		func() error {
			if err := cb.Query().Before("gorm:query").Register("slow_query:before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("slow_query:after_query", after)
		},
		func() error {
			if err := cb.Update().Before("gorm:update").Register("slow_query:before_update", before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("slow_query:after_update", after)
		},
		func() error {
			if err := cb.Delete().Before("gorm:delete").Register("slow_query:before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("slow_query:after_delete", after)
		},
		func() error {
			if err := cb.Row().Before("gorm:row").Register("slow_query:before_row", before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("slow_query:after_row", after)
		},
		func() error {
			if err := cb.Raw().Before("gorm:raw").Register("slow_query:before_raw", before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("slow_query:after_raw", after)
		},
	}
	for _, register := range steps {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
