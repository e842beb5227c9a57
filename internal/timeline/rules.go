package timeline

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// Rule classifies one line of artifact content. The rule table is loaded once
// from the embedded YAML and shared read-only across all calls.
type Rule struct {
	Kind      string  `yaml:"kind"`
	Severity  string  `yaml:"severity"`
	Relevance float64 `yaml:"relevance"`
	Pattern   string  `yaml:"pattern"`

	re *regexp.Regexp
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// classifierRules is the immutable, ordered rule table.
var classifierRules = mustLoadRules(rulesYAML)

func mustLoadRules(data []byte) []Rule {
	rules, err := loadRules(data)
	if err != nil {
		panic(fmt.Sprintf("timeline: load rules.yaml: %v", err))
	}
	return rules
}

func loadRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("no rules defined")
	}
	for i := range f.Rules {
		r := &f.Rules[i]
		if r.Kind == "" || r.Pattern == "" {
			return nil, fmt.Errorf("rule %d: kind and pattern are required", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Kind, err)
		}
		r.re = re
	}
	return f.Rules, nil
}

// classify returns the first rule matching line, or nil. Rules are ordered,
// not scored: an error line that also mentions a deploy stays an error.
func classify(line string) *Rule {
	for i := range classifierRules {
		if classifierRules[i].re.MatchString(line) {
			return &classifierRules[i]
		}
	}
	return nil
}
