// Package pipeline sequences one run: fetch candidate emails, extract and
// normalize each payslip, then hand the batch to the warehouse loader in the
// selected mode.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/markozagar94/paycheck-tracker/internal/common"
	"github.com/markozagar94/paycheck-tracker/internal/currency"
	"github.com/markozagar94/paycheck-tracker/internal/inbox"
	"github.com/markozagar94/paycheck-tracker/internal/parser"
	"github.com/markozagar94/paycheck-tracker/internal/warehouse"
)

// Loader is the write side of the destination table.
type Loader interface {
	LoadHistorical(ctx context.Context, rows []warehouse.Row) error
	MergeIncremental(ctx context.Context, rows []warehouse.Row) error
}

// TextExtractor turns a spooled PDF into text. ok is false for a document
// with no extractable text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (text string, ok bool, err error)
}

// Config holds the run-level settings of the orchestrator.
type Config struct {
	Subject   string
	Label     string
	OutputDir string
}

// Pipeline wires source, extraction, normalization, mapping and load.
// Strictly sequential: one document in flight at a time, batch order follows
// fetch order into the final write.
type Pipeline struct {
	cfg       Config
	source    inbox.Source
	text      TextExtractor
	extractor *parser.Extractor
	converter *currency.Converter
	mapping   FieldMapping
	loader    Loader
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config, source inbox.Source, text TextExtractor, extractor *parser.Extractor,
	converter *currency.Converter, mapping FieldMapping, loader Loader, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "pdf_files"
	}
	return &Pipeline{
		cfg:       cfg,
		source:    source,
		text:      text,
		extractor: extractor,
		converter: converter,
		mapping:   mapping,
		loader:    loader,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one load. historical selects the full-replace path, otherwise
// only the most recent candidate is merged incrementally.
//
// When the candidate list is empty the run ends without any loader call, so
// an empty mailbox never touches the table — note the asymmetry with a
// non-empty candidate list whose documents all get skipped, which in
// historical mode still performs a full replace with an empty batch and
// empties the table.
func (p *Pipeline) Run(ctx context.Context, historical bool) error {
	log := p.logger.With("run_id", uuid.New().String())

	refs, err := p.source.ListCandidates(ctx, p.cfg.Label, p.cfg.Subject)
	if err != nil {
		return common.NewAppError("PIPELINE_ERROR", "listing candidates", err)
	}
	if len(refs) == 0 {
		log.Info("pipeline.no_candidates", "label", p.cfg.Label, "subject", p.cfg.Subject)
		return nil
	}
	if !historical {
		log.Info("pipeline.incremental.latest_only", "candidates", len(refs))
		refs = refs[:1]
	}

	batch := make([]warehouse.Row, 0, len(refs))
	for _, ref := range refs {
		log.Info("pipeline.message.start", "message_id", ref.ID)
		row, ok := p.processMessage(ctx, log, ref)
		if !ok {
			continue
		}
		batch = append(batch, row)
	}

	if historical {
		log.Info("pipeline.load.historical", "rows", len(batch))
		return p.loader.LoadHistorical(ctx, batch)
	}
	log.Info("pipeline.load.incremental", "rows", len(batch))
	return p.loader.MergeIncremental(ctx, batch)
}

// processMessage extracts one record from one message. Every failure in here
// is per-document: logged, the message skipped, the run continues.
func (p *Pipeline) processMessage(ctx context.Context, log *slog.Logger, ref inbox.MessageRef) (warehouse.Row, bool) {
	atts, err := p.source.FetchAttachments(ctx, ref)
	if err != nil {
		log.Warn("pipeline.attachments.failed", "message_id", ref.ID, "error", err)
		return nil, false
	}
	// Zero or several PDFs on one message is ambiguous, not an error worth
	// aborting the run.
	if len(atts) != 1 {
		log.Warn("pipeline.attachments.skip", "message_id", ref.ID, "count", len(atts))
		return nil, false
	}
	att := atts[0]

	path, err := p.spool(att)
	if err != nil {
		log.Warn("pipeline.spool.failed", "message_id", ref.ID, "filename", att.Filename, "error", err)
		return nil, false
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			log.Warn("pipeline.cleanup.failed", "path", path, "error", err)
		} else {
			log.Debug("pipeline.cleanup.ok", "path", path)
		}
	}()

	text, ok, err := p.text.Extract(ctx, path)
	if err != nil {
		log.Warn("pipeline.text.failed", "message_id", ref.ID, "filename", att.Filename, "error", err)
		return nil, false
	}
	if !ok {
		// No text at all: the record comes out with every field absent.
		log.Warn("pipeline.text.empty", "message_id", ref.ID, "filename", att.Filename)
	}

	rec := p.extractor.Extract(text)
	normalized := p.converter.Normalize(rec)
	row := MapFields(normalized, p.mapping, att.Filename, p.now())
	log.Info("pipeline.record.ok", "message_id", ref.ID, "filename", att.Filename, "columns", len(row))
	return row, true
}

// spool writes the attachment to the output dir so pdftotext can read it.
func (p *Pipeline) spool(att inbox.Attachment) (string, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(p.cfg.OutputDir, filepath.Base(att.Filename))
	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
