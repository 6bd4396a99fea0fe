// Package currency normalizes extracted payslip amounts into the canonical
// currency (EUR). Croatian payslips carry older amounts in kuna with the
// local numeral format (thousands ".", decimal ","); newer ones already in
// euro with dot decimals. The format policy is fixed, not locale-detected.
package currency

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/markozagar94/paycheck-tracker/constants"
	"github.com/markozagar94/paycheck-tracker/internal/parser"
)

// ExchangeRateHRKToEUR is the fixed kuna->euro conversion rate.
const ExchangeRateHRKToEUR = 7.53450

const (
	// SourceSuffix marks amounts still denominated in kuna (case-sensitive).
	SourceSuffix = "kn"
	// Symbol is the canonical currency symbol added to every record.
	Symbol = "€"
)

// Converter rewrites a parsed record into canonical-currency values.
type Converter struct {
	Rate   float64
	logger *slog.Logger
}

func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{Rate: ExchangeRateHRKToEUR, logger: logger}
}

// Normalize converts every found string field:
//   - "4.000,00 kn" -> strip suffix, strip "." thousands, "," -> ".", parse,
//     divide by Rate, round to 2dp;
//   - "530.70€" -> strip symbol, parse as-is, no conversion;
//   - anything else (e.g. the date string) passes through unchanged.
//
// A value that fails numeric parsing is dropped from the output with a
// warning — a data-quality filter, never a silent zero. Absent fields pass
// through as explicit nils (they load as NULL). The currency label field is
// always set to Symbol, overwriting any prior value.
func (c *Converter) Normalize(rec parser.Record) map[string]any {
	out := make(map[string]any, len(rec)+1)

	for key, field := range rec {
		if !field.Found {
			out[key] = nil
			continue
		}
		value := field.Raw
		switch {
		case strings.HasSuffix(value, SourceSuffix):
			raw := strings.TrimSpace(strings.TrimSuffix(value, SourceSuffix))
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.ReplaceAll(raw, ",", ".")
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				c.logger.Warn("currency.parse.miss", "field", key, "value", value)
				continue
			}
			out[key] = round2(n / c.Rate)
		case strings.HasSuffix(value, Symbol):
			raw := strings.TrimSpace(strings.TrimSuffix(value, Symbol))
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				c.logger.Warn("currency.parse.miss", "field", key, "value", value)
				continue
			}
			out[key] = n
		default:
			out[key] = value
		}
	}

	out[constants.CurrencyField] = Symbol
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
