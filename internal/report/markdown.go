package report

import (
	"fmt"
	"strings"

	"github.com/repoaudit/repoaudit/internal/models"
)

// renderMarkdown produces a human-readable summary: totals, a
// per-severity table, findings grouped by file, and the skip list.
func renderMarkdown(result *models.ScanResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Repository Audit Report\n\n")
	fmt.Fprintf(&b, "- **Scan ID:** %s\n", result.ScanID)
	fmt.Fprintf(&b, "- **Root:** %s\n", result.Root)
	fmt.Fprintf(&b, "- **Mode:** %s\n", result.Mode)
	fmt.Fprintf(&b, "- **Timestamp:** %s\n", result.Timestamp.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Duration:** %dms\n", result.DurationMS)
	fmt.Fprintf(&b, "- **Fingerprint:** `%s`\n", result.RootFingerprint)
	if result.Summary.ComplianceStatus != "" {
		fmt.Fprintf(&b, "- **Compliance:** %s\n", result.Summary.ComplianceStatus)
	}

	s := result.Summary
	fmt.Fprintf(&b, "\n## Summary\n\n")
	fmt.Fprintf(&b, "| Files scanned | Files skipped | Findings |\n")
	fmt.Fprintf(&b, "|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n", s.FilesScanned, s.FilesSkipped, s.TotalFindings)

	fmt.Fprintf(&b, "\n| Critical | High | Medium | Low | Info |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n",
		s.Findings.Critical, s.Findings.High, s.Findings.Medium, s.Findings.Low, s.Findings.Info)

	wroteHeader := false
	for _, path := range result.SortedPaths() {
		rec := result.Files[path]
		if len(rec.Findings) == 0 {
			continue
		}
		if !wroteHeader {
			fmt.Fprintf(&b, "\n## Findings\n")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "\n### %s\n\n", path)
		for _, f := range rec.Findings {
			loc := "whole file"
			if f.Line > 0 {
				loc = fmt.Sprintf("line %d", f.Line)
			}
			fmt.Fprintf(&b, "- **%s** `%s` (%s): %s\n", strings.ToUpper(string(f.Severity)), f.RuleID, loc, f.Message)
		}
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintf(&b, "\n## Skipped\n\n")
		for _, skip := range result.Skipped {
			fmt.Fprintf(&b, "- `%s` (%s)\n", skip.Path, skip.Reason)
		}
	}

	return []byte(b.String())
}
