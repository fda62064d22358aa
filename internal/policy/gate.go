// Package policy evaluates CEL compliance rules over scan summaries
// and provides built-in presets.
package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/repoaudit/repoaudit/internal/models"
)

// Gate evaluates one compliance policy. Expressions are compiled at
// construction so a malformed policy fails before any scan starts.
type Gate struct {
	policy   *models.CompliancePolicy
	programs []cel.Program
}

// NewGate compiles every rule expression against the summary input
// schema. A compile error is a configuration error.
func NewGate(policy *models.CompliancePolicy) (*Gate, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.IntType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	g := &Gate{policy: policy, programs: make([]cel.Program, 0, len(policy.Rules))}
	for _, rule := range policy.Rules {
		if rule.Severity != models.ComplianceSeverityError && rule.Severity != models.ComplianceSeverityWarn {
			return nil, fmt.Errorf("policy rule %q: invalid severity %q (use error or warn)", rule.Name, rule.Severity)
		}
		ast, issues := env.Compile(rule.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("policy rule %q: compile error: %w", rule.Name, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("policy rule %q: program error: %w", rule.Name, err)
		}
		g.programs = append(g.programs, prg)
	}
	return g, nil
}

// Evaluate runs every rule against the summary.
func (g *Gate) Evaluate(summary models.Summary) ([]models.ComplianceResult, error) {
	input := summaryToMap(summary)

	results := make([]models.ComplianceResult, 0, len(g.policy.Rules))
	for i, rule := range g.policy.Rules {
		out, _, err := g.programs[i].Eval(map[string]interface{}{
			"input": input,
		})
		if err != nil {
			return nil, fmt.Errorf("policy rule %q: evaluation error: %w", rule.Name, err)
		}
		passed, ok := out.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("policy rule %q: expression must return boolean, got %T", rule.Name, out.Value())
		}

		result := models.ComplianceResult{
			RuleName: rule.Name,
			Passed:   passed,
			Severity: rule.Severity,
		}
		if !passed {
			result.FailureMsg = rule.FailureMsg
		}
		results = append(results, result)
	}
	return results, nil
}

// Status folds rule results into a single compliance status: any
// failed error rule fails the scan, any failed warn rule downgrades it
// to warn, otherwise it passes.
func (g *Gate) Status(summary models.Summary) (string, error) {
	results, err := g.Evaluate(summary)
	if err != nil {
		return "", err
	}

	status := models.CompliancePass
	for _, r := range results {
		if r.Passed {
			continue
		}
		if r.Severity == models.ComplianceSeverityError {
			return models.ComplianceFail, nil
		}
		status = models.ComplianceWarn
	}
	return status, nil
}

// summaryToMap exposes the summary counters to CEL expressions.
func summaryToMap(summary models.Summary) map[string]interface{} {
	return map[string]interface{}{
		"scanned":  summary.FilesScanned,
		"skipped":  summary.FilesSkipped,
		"total":    summary.TotalFindings,
		"critical": summary.Findings.Critical,
		"high":     summary.Findings.High,
		"medium":   summary.Findings.Medium,
		"low":      summary.Findings.Low,
		"info":     summary.Findings.Info,
	}
}
