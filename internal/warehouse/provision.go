package warehouse

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/markozagar94/paycheck-tracker/internal/common"
)

// EnsureTable executes the DDL file so the destination table exists before a
// run. The DDL is expected to be idempotent (CREATE TABLE IF NOT EXISTS).
// Provisioning is deliberately separate from the loader: the merge path
// treats a missing destination as fatal rather than creating it on the fly.
func EnsureTable(ctx context.Context, db *sql.DB, ddlFile string, logger *slog.Logger) error {
	ddl, err := os.ReadFile(ddlFile)
	if err != nil {
		return common.NewAppError("DDL_ERROR", "reading DDL file "+ddlFile, err)
	}
	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		return common.NewAppError("DDL_ERROR", "executing DDL", err)
	}
	logger.Info("warehouse.provision.ok", "ddl", ddlFile)
	return nil
}
