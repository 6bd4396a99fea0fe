// Package pdftext turns a payslip PDF on disk into plain text via the
// pdftotext binary. Payslips are born-digital, so no OCR fallback is needed.
package pdftext

import (
	"context"
	"log/slog"
	"strings"
)

type Extractor struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

// NewExtractor builds an extractor shelling out to bin (empty -> "pdftotext").
func NewExtractor(bin string, logger *slog.Logger) *Extractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{bin: bin, runner: execRunner{}, logger: logger}
}

// Extract returns the document text with pages joined by newlines. ok is
// false when the PDF yields no text at all (an empty page contributes
// nothing; a wholly empty document is reported as absent, not an error).
func (e *Extractor) Extract(ctx context.Context, path string) (text string, ok bool, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		e.logger.Warn("pdftext.extract.failed", "path", path, "stderr", truncate(string(errb), 2<<10))
		return "", false, err
	}

	// pdftotext separates pages with a form feed; the parser expects pages
	// concatenated with newlines.
	text = strings.TrimSpace(strings.ReplaceAll(string(out), "\f", "\n"))
	if text == "" {
		e.logger.Warn("pdftext.extract.empty", "path", path)
		return "", false, nil
	}
	pages := 1 + strings.Count(string(out), "\f")
	e.logger.Debug("pdftext.extract.ok", "path", path, "pages", pages, "bytes", len(text))
	return text, true, nil
}
