package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/repoaudit/repoaudit/internal/models"
)

func sampleResult() *models.ScanResult {
	lines := 2
	return &models.ScanResult{
		Version:         models.ReportVersion,
		ScanID:          "scan-1",
		Root:            "/repo",
		Mode:            "safe",
		Timestamp:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		DurationMS:      10,
		RootFingerprint: "fp-1",
		Files: map[string]models.FileRecord{
			"main.go": {
				Path:      "main.go",
				SizeBytes: 12,
				LineCount: &lines,
				Class:     models.ClassCode,
				Checksum:  "c1",
				Findings: []models.Finding{{
					RuleID:   "secrets.api_key",
					Severity: models.SeverityHigh,
					Line:     2,
					Message:  "Potential API key exposure",
				}},
			},
		},
		Skipped: []models.SkipEntry{{Path: "blob.bin", Reason: models.SkipBinary, SizeBytes: 999}},
		Summary: models.Summary{
			FilesScanned:     1,
			FilesSkipped:     1,
			TotalFindings:    1,
			Findings:         models.SeverityTally{High: 1},
			ComplianceStatus: models.ComplianceWarn,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"json", "jsonl", "markdown"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%s) failed: %v", valid, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := Render(sampleResult(), FormatJSON)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("JSON report should end with a newline")
	}

	var decoded models.ScanResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.ScanID != "scan-1" {
		t.Errorf("scan id = %s, want scan-1", decoded.ScanID)
	}
}

func TestRenderJSONL(t *testing.T) {
	data, err := Render(sampleResult(), FormatJSONL)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Error("JSONL output must be exactly one line")
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}
	if env.ScanID != "scan-1" || env.Fingerprint != "fp-1" {
		t.Errorf("envelope = %+v", env)
	}
	if env.User == "" {
		t.Error("envelope missing user")
	}
	if env.Report == nil || env.Report.Summary.TotalFindings != 1 {
		t.Error("envelope missing embedded report")
	}
}

func TestRenderMarkdown(t *testing.T) {
	data, err := Render(sampleResult(), FormatMarkdown)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	text := string(data)

	for _, want := range []string{
		"# Repository Audit Report",
		"scan-1",
		"secrets.api_key",
		"line 2",
		"blob.bin",
		"| 0 | 1 | 0 | 0 | 0 |",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	if err := Write(sampleResult(), FormatJSON, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %v", entries)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var decoded models.ScanResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written report invalid: %v", err)
	}
}

func TestWriteJSONLAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	if err := Write(sampleResult(), FormatJSONL, path); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := Write(sampleResult(), FormatJSONL, path); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("got %d lines, want 2", len(lines))
	}
}

func TestCanonicalDigestStable(t *testing.T) {
	a, err := CanonicalDigest(sampleResult())
	if err != nil {
		t.Fatalf("CanonicalDigest failed: %v", err)
	}
	b, err := CanonicalDigest(sampleResult())
	if err != nil {
		t.Fatalf("CanonicalDigest failed: %v", err)
	}
	if a != b {
		t.Error("canonical digest is not deterministic")
	}
	if !strings.HasPrefix(a, "sha256:") {
		t.Errorf("digest missing prefix: %s", a)
	}
}
