package parser

import (
	"log/slog"

	"github.com/markozagar94/paycheck-tracker/constants"
)

// Field is a single extracted value. Found distinguishes a real match from an
// absent one; absent fields propagate through the pipeline explicitly rather
// than as empty-string defaults.
type Field struct {
	Raw   string
	Found bool
}

// Record maps field names to extracted values. One date field plus
// zero-or-more amount fields.
type Record map[string]Field

// Extractor applies a compiled rule set to raw payslip text.
type Extractor struct {
	rules  *RuleSet
	logger *slog.Logger
}

func NewExtractor(rules *RuleSet, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{rules: rules, logger: logger}
}

// Extract runs every rule once against the full document text. First match
// wins; capture group 1 is the value. A rule with no match yields an absent
// field and a warning, never an abort. Pure over text and rules.
func (e *Extractor) Extract(text string) Record {
	rec := make(Record, len(e.rules.Amounts)+1)

	if m := e.rules.Date.FindStringSubmatch(text); m != nil {
		rec[constants.SalaryDateField] = Field{Raw: m[1], Found: true}
	} else {
		e.logger.Warn("parser.date.miss", "pattern", e.rules.Date.String())
		rec[constants.SalaryDateField] = Field{}
	}

	for name, re := range e.rules.Amounts {
		if m := re.FindStringSubmatch(text); m != nil {
			rec[name] = Field{Raw: m[1], Found: true}
		} else {
			e.logger.Warn("parser.amount.miss", "field", name, "pattern", re.String())
			rec[name] = Field{}
		}
	}
	return rec
}
