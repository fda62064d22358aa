// Package differ compares a current scan result against an accepted
// baseline and renders a verdict.
package differ

import (
	"fmt"

	"github.com/repoaudit/repoaudit/internal/models"
	"github.com/wI2L/jsondiff"
)

// Verdict summarizes a comparison.
type Verdict string

const (
	// VerdictClean: no regressions worth acting on and no improvements
	// to report. File churn and low-severity movement render as clean.
	VerdictClean Verdict = "clean"
	// VerdictImprovedOnly: at least one path improved and none
	// regressed.
	VerdictImprovedOnly Verdict = "improved_only"
	// VerdictRegressed: a file gained high or critical findings, or a
	// new file carries them.
	VerdictRegressed Verdict = "regressed"
)

// FileDelta describes how one path moved between scans.
type FileDelta struct {
	Path        string           `json:"path"`
	OldFindings []models.Finding `json:"old_findings,omitempty"`
	NewFindings []models.Finding `json:"new_findings,omitempty"`
	// Patch is the RFC 6902 view of the per-severity tally change.
	Patch jsondiff.Patch `json:"patch,omitempty"`
}

// Result is the full comparison outcome, ready for rendering.
type Result struct {
	BaselineFingerprint string      `json:"baseline_fingerprint"`
	CurrentFingerprint  string      `json:"current_fingerprint"`
	Regressions         []FileDelta `json:"regressions,omitempty"`
	Improvements        []FileDelta `json:"improvements,omitempty"`
	NewFiles            []FileDelta `json:"new_files,omitempty"`
	RemovedFiles        []FileDelta `json:"removed_files,omitempty"`
	ChangedFiles        []string    `json:"changed_files,omitempty"`
	Verdict             Verdict     `json:"verdict"`
}

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compare walks the union of baseline and current paths in sorted
// order, so the result is stable across runs.
func (e *Engine) Compare(baseline, current *models.ScanResult) (*Result, error) {
	res := &Result{
		BaselineFingerprint: baseline.RootFingerprint,
		CurrentFingerprint:  current.RootFingerprint,
	}

	for _, path := range baseline.SortedPaths() {
		old := baseline.Files[path]
		cur, found := current.Files[path]
		if !found {
			res.RemovedFiles = append(res.RemovedFiles, FileDelta{
				Path:        path,
				OldFindings: old.Findings,
			})
			continue
		}

		direction, patch, err := compareFindings(old.Findings, cur.Findings)
		if err != nil {
			return nil, fmt.Errorf("comparing findings for %s: %w", path, err)
		}
		delta := FileDelta{
			Path:        path,
			OldFindings: old.Findings,
			NewFindings: cur.Findings,
			Patch:       patch,
		}
		switch direction {
		case dirWorse:
			res.Regressions = append(res.Regressions, delta)
		case dirBetter:
			res.Improvements = append(res.Improvements, delta)
		default:
			if old.Checksum != cur.Checksum {
				res.ChangedFiles = append(res.ChangedFiles, path)
			}
		}
	}

	for _, path := range current.SortedPaths() {
		if _, found := baseline.Files[path]; found {
			continue
		}
		cur := current.Files[path]
		res.NewFiles = append(res.NewFiles, FileDelta{
			Path:        path,
			NewFindings: cur.Findings,
		})
	}

	res.Verdict = verdict(res)
	return res, nil
}

type direction int

const (
	dirSame direction = iota
	dirWorse
	dirBetter
)

// compareFindings classifies the movement of one file's findings by
// total count: more findings than baseline is a regression, fewer an
// improvement, equal is unchanged even when severities shifted.
func compareFindings(old, cur []models.Finding) (direction, jsondiff.Patch, error) {
	var dir direction
	switch {
	case len(cur) > len(old):
		dir = dirWorse
	case len(cur) < len(old):
		dir = dirBetter
	default:
		return dirSame, nil, nil
	}

	patch, err := jsondiff.Compare(tallyMap(old), tallyMap(cur))
	if err != nil {
		return dirSame, nil, fmt.Errorf("failed to diff severity tallies: %w", err)
	}
	return dir, patch, nil
}

func tallyMap(findings []models.Finding) map[string]int {
	tally := make(map[string]int, len(models.Severities))
	for _, s := range models.Severities {
		tally[string(s)] = 0
	}
	for _, f := range findings {
		tally[string(f.Severity)]++
	}
	return tally
}

// verdict: regressed only when the movement introduced high or
// critical findings; improved_only when paths improved and none
// regressed; everything else, including low-severity regressions and
// plain file churn, renders as clean.
func verdict(res *Result) Verdict {
	for _, d := range res.Regressions {
		if gainedSevere(d.OldFindings, d.NewFindings) {
			return VerdictRegressed
		}
	}
	for _, d := range res.NewFiles {
		if gainedSevere(nil, d.NewFindings) {
			return VerdictRegressed
		}
	}
	if len(res.Improvements) > 0 && len(res.Regressions) == 0 {
		return VerdictImprovedOnly
	}
	return VerdictClean
}

// gainedSevere reports whether cur has more high or critical findings
// than old.
func gainedSevere(old, cur []models.Finding) bool {
	oldTally := tallyMap(old)
	curTally := tallyMap(cur)
	for _, s := range []models.Severity{models.SeverityHigh, models.SeverityCritical} {
		if curTally[string(s)] > oldTally[string(s)] {
			return true
		}
	}
	return false
}
