package warehouse

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/markozagar94/paycheck-tracker/constants"
	"github.com/markozagar94/paycheck-tracker/internal/common"
)

// Open connects to the warehouse. Postgres goes through a pgx pool wrapped
// for database/sql; the sqlite dialect serves local runs and tests. The
// returned pool is nil for sqlite.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	if cfg.Dialect == constants.DialectSQLite {
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to open sqlite warehouse", "error", err)
			return nil, nil, err
		}
		return db, nil, nil
	}

	logger.Info("connecting to warehouse", "dsn", cfg.DSN)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse warehouse DSN", "error", err)
		return nil, nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "paycheck-tracker"

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to warehouse", "error", err)
		return nil, nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to warehouse")
	return db, pool, nil
}

// Close closes the warehouse connections gracefully
func Close(db *sql.DB, pool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("closing warehouse connections")
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close warehouse handle", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("warehouse connections closed")
}

// HealthCheck pings the warehouse to catch DSN issues early.
func HealthCheck(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Debug("pinging warehouse")
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("warehouse ping successful")
	return nil
}
