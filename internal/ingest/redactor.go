package ingest

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RedactionRule is one pattern substitution applied to outbound text.
type RedactionRule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`

	re *regexp.Regexp
}

// Redactor applies ordered pattern substitutions to any outbound content
// or thought field. Stateless after construction; safe for concurrent use.
type Redactor struct {
	rules []RedactionRule
}

// defaultRules cover common secret shapes seen in agent transcripts.
var defaultRules = []RedactionRule{
	{Pattern: `sk-[A-Za-z0-9_-]{20,}`, Replacement: "[REDACTED_API_KEY]"},
	{Pattern: `(?i)bearer\s+[A-Za-z0-9._~+/-]+=*`, Replacement: "[REDACTED_TOKEN]"},
	{Pattern: `(?i)(password|secret|api_key|token)(["':=]\s*)[^\s"',;]+`, Replacement: "$1$2[REDACTED]"},
	{Pattern: `-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`, Replacement: "[REDACTED_PRIVATE_KEY]"},
}

// NewRedactor compiles the default rules plus any extras. Extra rules run
// after the defaults in the order given.
func NewRedactor(extra ...RedactionRule) (*Redactor, error) {
	rules := make([]RedactionRule, 0, len(defaultRules)+len(extra))
	for _, r := range append(append([]RedactionRule{}, defaultRules...), extra...) {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile redaction pattern %q: %w", r.Pattern, err)
		}
		r.re = re
		rules = append(rules, r)
	}
	return &Redactor{rules: rules}, nil
}

// NewRedactorFromFile loads extra rules from a YAML file of the form:
//
//	rules:
//	  - pattern: "internal-[0-9]+"
//	    replacement: "[REDACTED_ID]"
func NewRedactorFromFile(path string) (*Redactor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read redaction rules: %w", err)
	}
	var doc struct {
		Rules []RedactionRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse redaction rules: %w", err)
	}
	return NewRedactor(doc.Rules...)
}

// Redact applies all rules to s.
func (r *Redactor) Redact(s string) string {
	for _, rule := range r.rules {
		s = rule.re.ReplaceAllString(s, rule.Replacement)
	}
	return s
}
