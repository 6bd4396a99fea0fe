package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/markozagar94/paycheck-tracker/constants"
	"github.com/markozagar94/paycheck-tracker/internal/common"
	"github.com/markozagar94/paycheck-tracker/internal/currency"
	"github.com/markozagar94/paycheck-tracker/internal/export"
	"github.com/markozagar94/paycheck-tracker/internal/inbox"
	"github.com/markozagar94/paycheck-tracker/internal/parser"
	"github.com/markozagar94/paycheck-tracker/internal/pdftext"
	"github.com/markozagar94/paycheck-tracker/internal/pipeline"
	"github.com/markozagar94/paycheck-tracker/internal/warehouse"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem      = flag.Bool("inmem", false, "use an in-memory SQLite warehouse instead of Postgres")
		exportPath = flag.String("export", "", "write the warehouse table to this XLSX file after the run")
	)
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Process-wide logger, built once and injected everywhere.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadFromEnv()
	if *inmem {
		cfg.Database.Dialect = constants.DialectSQLite
		cfg.Database.DSN = "file:paycheck?mode=memory&cache=shared"
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Extraction rules and field mapping are loaded and validated up front;
	// no document is touched against a broken config.
	rules, err := parser.LoadRuleSet(cfg.Parser.RulesFile)
	if err != nil {
		logger.Error("loading extraction rules failed", "error", err)
		os.Exit(2)
	}
	mapping, err := pipeline.LoadFieldMapping(cfg.Parser.MappingFile)
	if err != nil {
		logger.Error("loading field mapping failed", "error", err)
		os.Exit(2)
	}

	db, pool, err := warehouse.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("opening warehouse failed", "error", err)
		os.Exit(1)
	}
	defer warehouse.Close(db, pool, logger)

	if err := warehouse.HealthCheck(ctx, db, logger); err != nil {
		logger.Error("warehouse health check failed", "error", err)
		os.Exit(1)
	}
	if err := warehouse.EnsureTable(ctx, db, cfg.Database.DDLFile, logger); err != nil {
		logger.Error("provisioning destination table failed", "error", err)
		os.Exit(1)
	}

	source, err := inbox.NewGmailSource(ctx, cfg.Inbox.CredentialsFile, logger)
	if err != nil {
		logger.Error("building gmail source failed", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(
		pipeline.Config{
			Subject:   cfg.Inbox.Subject,
			Label:     cfg.Inbox.Label,
			OutputDir: cfg.Parser.OutputDir,
		},
		source,
		pdftext.NewExtractor(cfg.Parser.PdftotextBin, logger),
		parser.NewExtractor(rules, logger),
		currency.NewConverter(logger),
		mapping,
		warehouse.NewLoader(db, cfg.Load.Table, cfg.Load.MergeKey, cfg.Database.Dialect, logger),
		logger,
	)

	if err := p.Run(ctx, cfg.Load.HistoricalLoad); err != nil {
		logger.Error("pipeline run failed", "historical", cfg.Load.HistoricalLoad, "error", err)
		os.Exit(1)
	}
	logger.Info("pipeline run complete", "historical", cfg.Load.HistoricalLoad)

	if *exportPath != "" {
		svc := export.NewService(db, cfg.Load.Table, cfg.Load.MergeKey, logger)
		data, err := svc.ExportXLSX(ctx)
		if err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*exportPath, data, 0o644); err != nil {
			logger.Error("writing export file failed", "path", *exportPath, "error", err)
			os.Exit(1)
		}
		logger.Info("export written", "path", *exportPath)
	}
}
