package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/markozagar94/paycheck-tracker/internal/common"
)

// ruleSetSchema describes the rules config file (JSON-Schema draft 2020-12
// subset). We validate the raw document before unmarshalling so that a
// malformed config is rejected with a precise error instead of a half-zeroed
// struct.
func ruleSetSchema() map[string]any {
	pattern := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"salary_date_pattern": pattern,
			"salary_amounts_patterns": map[string]any{
				"type":                 "object",
				"minProperties":        1,
				"additionalProperties": pattern,
			},
		},
		"required": []string{"salary_date_pattern", "salary_amounts_patterns"},
	}
}

// RuleSetConfig is the on-disk shape of the extraction rules.
type RuleSetConfig struct {
	DatePattern    string            `json:"salary_date_pattern"`
	AmountPatterns map[string]string `json:"salary_amounts_patterns"`
}

// RuleSet holds the compiled extraction rules. Immutable once loaded; shared
// by reference through the pipeline.
type RuleSet struct {
	Date    *regexp.Regexp
	Amounts map[string]*regexp.Regexp
}

// LoadRuleSet reads, validates and compiles an extraction rule set from a
// JSON file. Any problem here is a configuration error and fatal: no document
// may be processed against an invalid rule set.
func LoadRuleSet(path string) (*RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("RULES_ERROR", fmt.Sprintf("reading rules file %s", path), err)
	}
	if err := validateRuleSetJSON(raw); err != nil {
		return nil, common.NewAppError("RULES_ERROR", "invalid rules config", err)
	}

	var cfg RuleSetConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, common.NewAppError("RULES_ERROR", "unmarshal rules config", err)
	}
	return CompileRuleSet(cfg)
}

// CompileRuleSet compiles a rule set config, enforcing that every pattern
// carries exactly one capture group.
func CompileRuleSet(cfg RuleSetConfig) (*RuleSet, error) {
	date, err := compileRule("salary_date_pattern", cfg.DatePattern)
	if err != nil {
		return nil, err
	}
	if len(cfg.AmountPatterns) == 0 {
		return nil, common.NewAppError("RULES_ERROR", "salary_amounts_patterns must not be empty", common.ErrValidation)
	}

	amounts := make(map[string]*regexp.Regexp, len(cfg.AmountPatterns))
	for name, p := range cfg.AmountPatterns {
		re, err := compileRule(name, p)
		if err != nil {
			return nil, err
		}
		amounts[name] = re
	}
	return &RuleSet{Date: date, Amounts: amounts}, nil
}

func compileRule(name, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, common.NewAppError("RULES_ERROR", fmt.Sprintf("rule %q is empty", name), common.ErrValidation)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, common.NewAppError("RULES_ERROR", fmt.Sprintf("rule %q does not compile", name), err)
	}
	if re.NumSubexp() != 1 {
		return nil, common.NewAppError("RULES_ERROR",
			fmt.Sprintf("rule %q must contain exactly one capture group, has %d", name, re.NumSubexp()),
			common.ErrValidation)
	}
	return re, nil
}

// validateRuleSetJSON validates raw JSON against the rule set schema.
func validateRuleSetJSON(data []byte) error {
	b, err := json.Marshal(ruleSetSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("rules.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
