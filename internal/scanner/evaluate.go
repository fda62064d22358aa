package scanner

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/repoaudit/repoaudit/internal/models"
	"github.com/repoaudit/repoaudit/internal/ruleset"
)

// Evaluate scans file content line by line against the rule set. It is
// a pure function of its inputs: no global state, safe to run in
// parallel across files, deterministic for identical inputs.
//
// Per line each rule contributes at most one Finding; patterns are
// tested in declared order and the first match wins. Findings come
// back ordered by line, then by rule id (the rule set's fixed
// evaluation order).
func Evaluate(data []byte, rules *ruleset.RuleSet) []models.Finding {
	var findings []models.Finding

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes(len(data)))

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		for _, rule := range rules.Rules() {
			pattern, ok := rule.MatchLine(line)
			if !ok {
				continue
			}
			findings = append(findings, models.Finding{
				RuleID:         rule.ID,
				Severity:       rule.Severity,
				Line:           lineNo,
				Message:        findingMessage(rule, pattern),
				Category:       rule.Category,
				ComplianceTags: rule.ComplianceTags,
			})
		}
	}
	// scanner errors only occur on lines beyond the buffer cap, which
	// maxLineBytes rules out; malformed bytes pass through untouched
	return findings
}

func findingMessage(rule *ruleset.CompiledRule, pattern string) string {
	if rule.Description != "" {
		return rule.Description
	}
	return fmt.Sprintf("matched pattern %q", pattern)
}

// CountLines counts newline-delimited lines the way Evaluate iterates
// them; a trailing fragment without a newline counts as a line.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// maxLineBytes sizes the scanner buffer so a file that is one long
// line still evaluates instead of erroring.
func maxLineBytes(fileSize int) int {
	const floor = 1 << 20
	if fileSize+1 > floor {
		return fileSize + 1
	}
	return floor
}
