package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() RuleSetConfig {
	return RuleSetConfig{
		DatePattern: `Datum isplate[:\s]+(\d{2}\.\d{2}\.\d{4})`,
		AmountPatterns: map[string]string{
			"neto_placa": `Neto pla[cć]a[:\s]+([\d.,]+\s?kn)`,
		},
	}
}

func TestCompileRuleSet(t *testing.T) {
	rs, err := CompileRuleSet(validConfig())
	require.NoError(t, err)
	require.NotNil(t, rs.Date)
	require.Len(t, rs.Amounts, 1)
}

func TestCompileRuleSetRejectsEmptyDatePattern(t *testing.T) {
	cfg := validConfig()
	cfg.DatePattern = ""
	_, err := CompileRuleSet(cfg)
	require.Error(t, err)
}

func TestCompileRuleSetRejectsEmptyAmounts(t *testing.T) {
	cfg := validConfig()
	cfg.AmountPatterns = nil
	_, err := CompileRuleSet(cfg)
	require.Error(t, err)
}

func TestCompileRuleSetRejectsWrongCaptureGroupCount(t *testing.T) {
	cfg := validConfig()
	cfg.AmountPatterns["neto_placa"] = `Neto pla[cć]a[:\s]+[\d.,]+` // zero groups
	_, err := CompileRuleSet(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one capture group")

	cfg.AmountPatterns["neto_placa"] = `(Neto) pla[cć]a[:\s]+([\d.,]+)` // two groups
	_, err = CompileRuleSet(cfg)
	require.Error(t, err)
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRuleSet(t *testing.T) {
	path := writeRules(t, `{
		"salary_date_pattern": "Datum isplate[:\\s]+(\\d{2}\\.\\d{2}\\.\\d{4})",
		"salary_amounts_patterns": {
			"neto_placa": "Neto pla[cć]a[:\\s]+([\\d.,]+\\s?kn)"
		}
	}`)
	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	require.Contains(t, rs.Amounts, "neto_placa")
}

func TestLoadRuleSetRejectsMissingDateKey(t *testing.T) {
	path := writeRules(t, `{"salary_amounts_patterns": {"neto_placa": "x([\\d.,]+)"}}`)
	_, err := LoadRuleSet(path)
	require.Error(t, err)
}

func TestLoadRuleSetRejectsMissingAmountsKey(t *testing.T) {
	path := writeRules(t, `{"salary_date_pattern": "(\\d{4})"}`)
	_, err := LoadRuleSet(path)
	require.Error(t, err)
}

func TestLoadRuleSetRejectsMalformedJSON(t *testing.T) {
	path := writeRules(t, `{"salary_date_pattern": `)
	_, err := LoadRuleSet(path)
	require.Error(t, err)
}

func TestLoadRuleSetMissingFile(t *testing.T) {
	_, err := LoadRuleSet(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
