package warehouse

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/markozagar94/paycheck-tracker/constants"
)

const testDDL = `CREATE TABLE salary_data (
	salary_date  TEXT,
	net_salary   DOUBLE PRECISION,
	currency     TEXT,
	file_name    TEXT,
	load_date    BIGINT
)`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testDB opens an in-memory warehouse with the destination pre-provisioned.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every new conn of the pool would get its own empty :memory: database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testDDL)
	require.NoError(t, err)
	return db
}

func testLoader(db *sql.DB) *Loader {
	return NewLoader(db, "salary_data", "salary_date", constants.DialectSQLite, testLogger())
}

func row(date string, net float64, file string) Row {
	return Row{
		"salary_date": date,
		"net_salary":  net,
		"currency":    "€",
		"file_name":   file,
		"load_date":   int64(1706700000),
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func tempTableExists(t *testing.T, db *sql.DB) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='salary_data_temp'`).Scan(&n))
	return n > 0
}

func TestLoadHistoricalReplacesAllRows(t *testing.T) {
	db := testDB(t)
	l := testLoader(db)
	ctx := context.Background()

	require.NoError(t, l.LoadHistorical(ctx, []Row{row("2023-12-29", 500, "dec.pdf")}))
	require.NoError(t, l.LoadHistorical(ctx, []Row{
		row("2024-01-31", 530.89, "jan.pdf"),
		row("2024-02-29", 540.10, "feb.pdf"),
	}))

	assert.Equal(t, 2, countRows(t, db, "salary_data"))
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM salary_data WHERE salary_date = '2023-12-29'`).Scan(&n))
	assert.Zero(t, n, "prior contents must be gone")
}

func TestLoadHistoricalEmptyBatchEmptiesTable(t *testing.T) {
	db := testDB(t)
	l := testLoader(db)
	ctx := context.Background()

	require.NoError(t, l.LoadHistorical(ctx, []Row{row("2024-01-31", 530.89, "jan.pdf")}))
	require.NoError(t, l.LoadHistorical(ctx, nil))
	assert.Zero(t, countRows(t, db, "salary_data"))
}

func TestLoadHistoricalMissingColumnsLoadAsNull(t *testing.T) {
	db := testDB(t)
	l := testLoader(db)

	r := row("2024-01-31", 530.89, "jan.pdf")
	delete(r, "net_salary")
	require.NoError(t, l.LoadHistorical(context.Background(), []Row{r}))

	var net sql.NullFloat64
	require.NoError(t, db.QueryRow(`SELECT net_salary FROM salary_data`).Scan(&net))
	assert.False(t, net.Valid)
}

func TestMergeIncrementalOverwritesMatchedAndInsertsNew(t *testing.T) {
	db := testDB(t)
	l := testLoader(db)
	ctx := context.Background()

	require.NoError(t, l.LoadHistorical(ctx, []Row{
		row("2024-01-31", 111.11, "jan-old.pdf"),
		row("2023-12-29", 500, "dec.pdf"),
	}))

	require.NoError(t, l.MergeIncremental(ctx, []Row{
		row("2024-01-31", 530.89, "jan.pdf"), // existing key: full-row replace
		row("2024-02-29", 540.10, "feb.pdf"), // new key: insert
	}))

	// prior count + number of genuinely new keys
	assert.Equal(t, 3, countRows(t, db, "salary_data"))

	var net float64
	var file string
	require.NoError(t, db.QueryRow(
		`SELECT net_salary, file_name FROM salary_data WHERE salary_date = '2024-01-31'`).Scan(&net, &file))
	assert.Equal(t, 530.89, net)
	assert.Equal(t, "jan.pdf", file, "matched row is replaced whole")

	assert.False(t, tempTableExists(t, db), "temp table dropped after merge")
}

func TestMergeIncrementalIsIdempotent(t *testing.T) {
	db := testDB(t)
	l := testLoader(db)
	ctx := context.Background()

	batch := []Row{row("2024-01-31", 530.89, "jan.pdf")}
	require.NoError(t, l.MergeIncremental(ctx, batch))
	require.NoError(t, l.MergeIncremental(ctx, batch))
	assert.Equal(t, 1, countRows(t, db, "salary_data"))
}

func TestMergeIncrementalEmptyBatchKeepsTable(t *testing.T) {
	db := testDB(t)
	l := testLoader(db)
	ctx := context.Background()

	require.NoError(t, l.LoadHistorical(ctx, []Row{row("2024-01-31", 530.89, "jan.pdf")}))
	require.NoError(t, l.MergeIncremental(ctx, nil))
	assert.Equal(t, 1, countRows(t, db, "salary_data"))
	assert.False(t, tempTableExists(t, db))
}

func TestMergeIncrementalRequiresDestinationTable(t *testing.T) {
	db := testDB(t)
	l := NewLoader(db, "missing_table", "salary_date", constants.DialectSQLite, testLogger())
	err := l.MergeIncremental(context.Background(), []Row{row("2024-01-31", 1, "x.pdf")})
	require.Error(t, err)
}

func TestMergeIncrementalReplacesLeftoverTempTable(t *testing.T) {
	db := testDB(t)
	l := testLoader(db)
	ctx := context.Background()

	// Simulate a temp table left behind by a failed previous run.
	_, err := db.Exec(`CREATE TABLE salary_data_temp (junk TEXT)`)
	require.NoError(t, err)

	require.NoError(t, l.MergeIncremental(ctx, []Row{row("2024-01-31", 530.89, "jan.pdf")}))
	assert.Equal(t, 1, countRows(t, db, "salary_data"))
	assert.False(t, tempTableExists(t, db))
}
