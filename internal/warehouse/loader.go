package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markozagar94/paycheck-tracker/constants"
	"github.com/markozagar94/paycheck-tracker/internal/common"
)

// Row is one warehouse-ready record: column name -> value. Columns missing
// from a row load as NULL; keys without a destination column are skipped with
// a warning.
type Row map[string]any

// Loader owns the write side of the destination table: full historical
// replaces and staged incremental merges keyed by the merge key column.
// Key uniqueness is enforced by the merge step itself, not by a constraint
// on the store.
type Loader struct {
	db       *sql.DB
	table    string
	mergeKey string
	dialect  string
	logger   *slog.Logger
}

func NewLoader(db *sql.DB, table, mergeKey, dialect string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if dialect == "" {
		dialect = constants.DialectPostgres
	}
	return &Loader{db: db, table: table, mergeKey: mergeKey, dialect: dialect, logger: logger}
}

// LoadHistorical atomically replaces the table contents with the batch. An
// empty batch empties the table: a full historical load always leaves exactly
// what was fetched this run. Any failure rolls back and is surfaced.
func (l *Loader) LoadHistorical(ctx context.Context, rows []Row) error {
	cols, err := l.columns(ctx, l.table)
	if err != nil {
		return common.NewAppError("LOAD_ERROR", fmt.Sprintf("reading schema of %s", l.table), err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("LOAD_ERROR", "begin historical load", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+l.table); err != nil {
		return common.NewAppError("LOAD_ERROR", "truncating destination", err)
	}
	if err := l.insertAll(ctx, tx, l.table, cols, rows); err != nil {
		return common.NewAppError("LOAD_ERROR", "writing historical batch", err)
	}
	if err := tx.Commit(); err != nil {
		return common.NewAppError("LOAD_ERROR", "commit historical load", err)
	}

	l.logger.Info("warehouse.historical.ok", "table", l.table, "rows", len(rows))
	return nil
}

// MergeIncremental stages the batch into <table>_temp (same schema as the
// destination, which must already exist), then upserts by merge key in a
// single transaction: destination rows matching a staged key are replaced
// whole, unmatched staged rows are inserted. Temp-table removal happens after
// the merge committed; a failure there is logged, never escalated. A stage or
// merge failure aborts without temp cleanup and leaves earlier runs' data
// untouched.
func (l *Loader) MergeIncremental(ctx context.Context, rows []Row) error {
	cols, err := l.columns(ctx, l.table)
	if err != nil {
		return common.NewAppError("MERGE_ERROR", fmt.Sprintf("destination table %s not readable", l.table), err)
	}
	temp := l.table + "_temp"

	// Stage. A leftover temp table from a failed run is replaced, matching
	// the truncate-on-stage behavior of the destination warehouse.
	if _, err := l.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+temp); err != nil {
		return common.NewAppError("MERGE_ERROR", "resetting temp table", err)
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s WHERE 1=0", temp, l.table)
	if _, err := l.db.ExecContext(ctx, createSQL); err != nil {
		return common.NewAppError("MERGE_ERROR", "creating temp table", err)
	}
	if err := l.insertAll(ctx, l.db, temp, cols, rows); err != nil {
		return common.NewAppError("MERGE_ERROR", "staging batch", err)
	}

	// Merge: all-or-nothing for this run's batch.
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("MERGE_ERROR", "begin merge", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT %s FROM %s)",
		l.table, l.mergeKey, l.mergeKey, temp)
	if _, err := tx.ExecContext(ctx, deleteSQL); err != nil {
		return common.NewAppError("MERGE_ERROR", "replacing matched rows", err)
	}
	colList := strings.Join(cols, ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", l.table, colList, colList, temp)
	if _, err := tx.ExecContext(ctx, insertSQL); err != nil {
		return common.NewAppError("MERGE_ERROR", "inserting staged rows", err)
	}
	if err := tx.Commit(); err != nil {
		return common.NewAppError("MERGE_ERROR", "commit merge", err)
	}
	l.logger.Info("warehouse.merge.ok", "table", l.table, "rows", len(rows))

	// Cleanup after the merge committed; failure here must not fail the run.
	if _, err := l.db.ExecContext(ctx, "DROP TABLE "+temp); err != nil {
		l.logger.Warn("warehouse.temp.drop_failed", "table", temp, "error", err)
	}
	return nil
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (l *Loader) insertAll(ctx context.Context, db execer, table string, cols []string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), l.placeholders(len(cols)))
	for i, row := range rows {
		vals := make([]any, len(cols))
		for j, c := range cols {
			vals[j] = row[c]
		}
		for k := range row {
			if !contains(cols, k) {
				l.logger.Warn("warehouse.unknown_column", "column", k, "row", i)
			}
		}
		if _, err := db.ExecContext(ctx, insertSQL, vals...); err != nil {
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	return nil
}

// columns reads the live column list off the table itself, so staging always
// matches whatever the provisioner created.
func (l *Loader) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT * FROM "+table+" WHERE 1=0")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return cols, rows.Err()
}

func (l *Loader) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		if l.dialect == constants.DialectPostgres {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	return strings.Join(ph, ", ")
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
