package ruleset

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/repoaudit/repoaudit/internal/models"
	"github.com/repoaudit/repoaudit/internal/observability/logging"
)

// regexPrefix marks a pattern as a regular expression instead of a
// literal substring.
const regexPrefix = "re:"

// matcher tests one declared pattern against a line.
type matcher interface {
	match(line string) bool
	source() string
}

type literalMatcher string

func (m literalMatcher) match(line string) bool { return strings.Contains(line, string(m)) }
func (m literalMatcher) source() string         { return string(m) }

type regexpMatcher struct {
	raw string
	re  *regexp.Regexp
}

func (m regexpMatcher) match(line string) bool { return m.re.MatchString(line) }
func (m regexpMatcher) source() string         { return regexPrefix + m.raw }

// CompiledRule is a resolved rule with its patterns compiled. Patterns
// keep their declared order; the first match wins.
type CompiledRule struct {
	models.Rule
	matchers []matcher
}

// MatchLine returns the first matching pattern, declared order.
func (r *CompiledRule) MatchLine(line string) (string, bool) {
	for _, m := range r.matchers {
		if m.match(line) {
			return m.source(), true
		}
	}
	return "", false
}

// RuleSet is the resolved id-to-rule mapping for one scan invocation.
// Built once, read-only thereafter, shared by reference across all
// concurrent evaluator invocations.
type RuleSet struct {
	byID    map[string]*CompiledRule
	ordered []*CompiledRule // lexicographic id order, fixes evaluation order
}

// Len reports the number of resolved rules.
func (rs *RuleSet) Len() int { return len(rs.ordered) }

// Rules returns the resolved rules in lexicographic id order.
func (rs *RuleSet) Rules() []*CompiledRule { return rs.ordered }

// Get looks up a rule by id.
func (rs *RuleSet) Get(id string) (*CompiledRule, bool) {
	r, ok := rs.byID[id]
	return r, ok
}

// Ratchet resolves the severity of an overriding rule: overrides may
// escalate severity, never reduce it.
func Ratchet(old, incoming models.Severity) models.Severity {
	return models.MaxSeverity(old, incoming)
}

// Build resolves built-in rules plus external sources in precedence
// order. A colliding id replaces the previous rule entirely except for
// the severity ratchet. A rule whose regex fails to compile is dropped
// with a warning rather than aborting the build.
func Build(builtin []models.Rule, sources []models.RuleSource, log logging.Logger) (*RuleSet, error) {
	rs := &RuleSet{byID: make(map[string]*CompiledRule)}

	for _, rule := range builtin {
		compiled, err := compile(rule)
		if err != nil {
			return nil, fmt.Errorf("built-in rule %q: %w", rule.ID, err)
		}
		rs.byID[rule.ID] = compiled
	}

	for _, src := range sources {
		for _, rule := range src.Rules {
			if rule.ID == "" {
				log.Warn("ruleset", "skipping rule without id", "source", src.Name)
				continue
			}
			if !rule.Severity.Valid() {
				log.Warn("ruleset", "skipping rule with invalid severity",
					"source", src.Name, "rule", rule.ID, "severity", string(rule.Severity))
				continue
			}

			existing, collides := rs.byID[rule.ID]
			if !collides && !strings.Contains(rule.ID, ".") {
				log.Warn("ruleset", "external rule id has no namespace prefix",
					"source", src.Name, "rule", rule.ID)
			}

			compiled, err := compile(rule)
			if err != nil {
				// one bad custom rule never blocks built-in protections
				log.Warn("ruleset", "dropping rule with invalid pattern",
					"source", src.Name, "rule", rule.ID, "error", err.Error())
				continue
			}

			if collides {
				resolved := Ratchet(existing.Severity, rule.Severity)
				if rule.Severity.Rank() < existing.Severity.Rank() {
					log.Warn("ruleset", "severity de-escalation rejected",
						"source", src.Name, "rule", rule.ID,
						"kept", string(existing.Severity), "attempted", string(rule.Severity))
				}
				compiled.Severity = resolved
			}
			rs.byID[rule.ID] = compiled
		}
	}

	rs.ordered = make([]*CompiledRule, 0, len(rs.byID))
	for _, r := range rs.byID {
		rs.ordered = append(rs.ordered, r)
	}
	sort.Slice(rs.ordered, func(i, j int) bool { return rs.ordered[i].ID < rs.ordered[j].ID })

	return rs, nil
}

func compile(rule models.Rule) (*CompiledRule, error) {
	if len(rule.Patterns) == 0 {
		return nil, fmt.Errorf("rule has no patterns")
	}

	compiled := &CompiledRule{Rule: rule}
	for _, p := range rule.Patterns {
		if raw, ok := strings.CutPrefix(p, regexPrefix); ok {
			re, err := regexp.Compile(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", raw, err)
			}
			compiled.matchers = append(compiled.matchers, regexpMatcher{raw: raw, re: re})
			continue
		}
		compiled.matchers = append(compiled.matchers, literalMatcher(p))
	}
	return compiled, nil
}
