package models

import (
	"sort"
	"time"
)

// ReportVersion identifies the ScanResult schema for baseline files.
const ReportVersion = "1"

// FileClass is the semantic category assigned by the path classifier.
type FileClass string

const (
	ClassCode   FileClass = "code"
	ClassDocs   FileClass = "docs"
	ClassConfig FileClass = "config"
	ClassMedia  FileClass = "media"
	ClassBinary FileClass = "binary"
	ClassData   FileClass = "data"
)

// Finding is one rule match inside one file.
type Finding struct {
	RuleID         string   `json:"ruleId"`
	Severity       Severity `json:"severity"`
	Line           int      `json:"line,omitempty"` // 1-based; 0 for whole-file rules
	Message        string   `json:"message"`
	Category       string   `json:"category,omitempty"`
	ComplianceTags []string `json:"complianceTags,omitempty"`
}

// FileRecord describes one scanned file. Immutable once the evaluator
// returns it; owned by the ScanResult that contains it.
type FileRecord struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"sizeBytes"`
	LineCount *int      `json:"lineCount,omitempty"` // nil for binary files
	IsBinary  bool      `json:"isBinary"`
	Class     FileClass `json:"class"`
	Encoding  string    `json:"encoding,omitempty"`
	Checksum  string    `json:"checksum"`
	Findings  []Finding `json:"findings,omitempty"`
}

// SkipReason codes for entries excluded from evaluation.
type SkipReason string

const (
	SkipIgnored      SkipReason = "ignored"
	SkipBinary       SkipReason = "binary"
	SkipTooLarge     SkipReason = "too_large"
	SkipTooManyLines SkipReason = "too_many_lines"
	SkipReadError    SkipReason = "read_error"
)

// SkipEntry records one excluded path.
type SkipEntry struct {
	Path      string     `json:"path"`
	Reason    SkipReason `json:"reason"`
	SizeBytes int64      `json:"sizeBytes"`
}

// SeverityTally counts findings per severity.
type SeverityTally struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Add increments the bucket for s.
func (t *SeverityTally) Add(s Severity) {
	switch s {
	case SeverityCritical:
		t.Critical++
	case SeverityHigh:
		t.High++
	case SeverityMedium:
		t.Medium++
	case SeverityLow:
		t.Low++
	case SeverityInfo:
		t.Info++
	}
}

func (t SeverityTally) Total() int {
	return t.Critical + t.High + t.Medium + t.Low + t.Info
}

// Compliance status values derived by the policy gate.
const (
	CompliancePass = "pass"
	ComplianceWarn = "warn"
	ComplianceFail = "fail"
)

// Summary aggregates a finished scan.
type Summary struct {
	FilesScanned     int           `json:"filesScanned"`
	FilesSkipped     int           `json:"filesSkipped"`
	TotalFindings    int           `json:"totalFindings"`
	Findings         SeverityTally `json:"findings"`
	ComplianceStatus string        `json:"complianceStatus"`
}

// ScanResult is the canonical report structure. Finalized results are
// immutable and safe to share across renderers, the differ, and the
// signer.
type ScanResult struct {
	Version         string                `json:"version"`
	ScanID          string                `json:"scanId"`
	Root            string                `json:"root"`
	Mode            string                `json:"mode"` // "safe" or "deep"
	Timestamp       time.Time             `json:"timestamp"`
	DurationMS      int64                 `json:"durationMs"`
	RootFingerprint string                `json:"rootFingerprint"`
	Files           map[string]FileRecord `json:"files"`
	Skipped         []SkipEntry           `json:"skipped"`
	Summary         Summary               `json:"summary"`
}

// SortedPaths returns the file keys in lexicographic order.
func (r *ScanResult) SortedPaths() []string {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
