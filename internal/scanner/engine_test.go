package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/repoaudit/repoaudit/internal/models"
	"github.com/repoaudit/repoaudit/internal/observability/logging"
)

type stubGate struct {
	status string
}

func (g stubGate) Status(models.Summary) (string, error) {
	if g.status == "" {
		return models.CompliancePass, nil
	}
	return g.status, nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func testConfig(root string) models.Config {
	return models.Config{
		Root:           root,
		MaxFileSize:    models.DefaultMaxFileSize,
		MaxLines:       models.DefaultMaxLines,
		Encoding:       models.DefaultEncoding,
		IgnorePatterns: DefaultIgnorePatterns,
		Parallelism:    4,
	}
}

func newTestEngine(t *testing.T, cfg models.Config) *Engine {
	t.Helper()
	rs := testRules(t, models.Rule{
		ID:       "secrets.api_key",
		Severity: models.SeverityHigh,
		Patterns: []string{"API_KEY"},
	}, models.Rule{
		ID:       "compliance.todo",
		Severity: models.SeverityLow,
		Patterns: []string{"TODO"},
	})

	eng, err := NewEngine(cfg, rs, stubGate{}, logging.From(context.Background()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return eng
}

func scanTree(t *testing.T, cfg models.Config) *models.ScanResult {
	t.Helper()
	result, err := newTestEngine(t, cfg).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return result
}

func TestScanBasic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nvar key = \"API_KEY\"\n")
	writeFile(t, root, "docs/notes.md", "# notes\nTODO: finish\n")
	writeFile(t, root, "clean.go", "package main\n")

	result := scanTree(t, testConfig(root))

	if result.Summary.FilesScanned != 3 {
		t.Errorf("scanned %d files, want 3", result.Summary.FilesScanned)
	}
	if result.Summary.TotalFindings != 2 {
		t.Errorf("found %d findings, want 2", result.Summary.TotalFindings)
	}
	if result.Summary.Findings.High != 1 || result.Summary.Findings.Low != 1 {
		t.Errorf("tally = %+v", result.Summary.Findings)
	}
	if result.Summary.ComplianceStatus != models.CompliancePass {
		t.Errorf("compliance = %s, want pass", result.Summary.ComplianceStatus)
	}
	if result.Mode != "safe" {
		t.Errorf("mode = %s, want safe", result.Mode)
	}
	if result.ScanID == "" || result.RootFingerprint == "" {
		t.Error("missing scan id or fingerprint")
	}

	rec, ok := result.Files["main.go"]
	if !ok {
		t.Fatal("main.go missing from results")
	}
	if len(rec.Findings) != 1 || rec.Findings[0].Line != 3 {
		t.Errorf("unexpected findings for main.go: %+v", rec.Findings)
	}
	if rec.LineCount == nil || *rec.LineCount != 3 {
		t.Errorf("unexpected line count: %v", rec.LineCount)
	}
	if rec.Class != models.ClassCode {
		t.Errorf("class = %s, want code", rec.Class)
	}
}

func TestScanDeterministicAcrossParallelism(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a.go", "b/c.go", "b/d.md", "e.txt", "f/g/h.yaml"} {
		writeFile(t, root, rel, "content of "+rel+"\nTODO later\n")
	}

	cfg := testConfig(root)
	cfg.Parallelism = 1
	serial := scanTree(t, cfg)

	cfg.Parallelism = 8
	parallel := scanTree(t, cfg)

	if serial.RootFingerprint != parallel.RootFingerprint {
		t.Errorf("fingerprints differ: %s vs %s", serial.RootFingerprint, parallel.RootFingerprint)
	}
	if !reflect.DeepEqual(serial.Files, parallel.Files) {
		t.Error("file records differ across parallelism settings")
	}
	if !reflect.DeepEqual(serial.Skipped, parallel.Skipped) {
		t.Error("skip entries differ across parallelism settings")
	}
	if serial.Summary.Findings != parallel.Summary.Findings {
		t.Error("finding tallies differ across parallelism settings")
	}
}

func TestScanPrunesIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, ".git/config", "[core]\n")
	writeFile(t, root, ".git/objects/aa/blob", "x\n")
	writeFile(t, root, "node_modules/pkg/index.js", "API_KEY\n")

	result := scanTree(t, testConfig(root))

	if result.Summary.FilesScanned != 1 {
		t.Errorf("scanned %d files, want 1", result.Summary.FilesScanned)
	}
	// pruned subtrees produce one entry each, not one per file
	if len(result.Skipped) != 2 {
		t.Fatalf("got %d skip entries, want 2: %+v", len(result.Skipped), result.Skipped)
	}
	for _, skip := range result.Skipped {
		if skip.Reason != models.SkipIgnored {
			t.Errorf("skip reason = %s, want ignored", skip.Reason)
		}
	}
	if result.Summary.TotalFindings != 0 {
		t.Error("findings leaked from an ignored subtree")
	}
}

func TestScanSafeModeThresholds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.txt", "0123456789012345678901234567890123456789\n")
	writeFile(t, root, "tall.txt", "1\n2\n3\n4\n")
	writeFile(t, root, "ok.txt", "fine\n")

	cfg := testConfig(root)
	cfg.MaxFileSize = 20
	cfg.MaxLines = 3
	result := scanTree(t, cfg)

	if result.Summary.FilesScanned != 1 {
		t.Errorf("scanned %d files, want 1", result.Summary.FilesScanned)
	}

	reasons := map[string]models.SkipReason{}
	for _, s := range result.Skipped {
		reasons[s.Path] = s.Reason
	}
	if reasons["big.txt"] != models.SkipTooLarge {
		t.Errorf("big.txt skip reason = %s, want too_large", reasons["big.txt"])
	}
	if reasons["tall.txt"] != models.SkipTooManyLines {
		t.Errorf("tall.txt skip reason = %s, want too_many_lines", reasons["tall.txt"])
	}
}

func TestScanOversizedUnknownExtensionSniffed(t *testing.T) {
	root := t.TempDir()
	// both exceed the size threshold and have no extension entry
	writeFile(t, root, "payload", "\x00\x01\x02\x03\x00\x01\x02\x03\x00\x01\x02\x03\x00\x01\x02\x03\x00\x01\x02\x03\x00\x01")
	writeFile(t, root, "bigtext", "just plain text that goes on long enough to cross the limit\n")

	cfg := testConfig(root)
	cfg.MaxFileSize = 20
	result := scanTree(t, cfg)

	reasons := map[string]models.SkipReason{}
	for _, s := range result.Skipped {
		reasons[s.Path] = s.Reason
	}
	if reasons["payload"] != models.SkipBinary {
		t.Errorf("payload skip reason = %s, want binary", reasons["payload"])
	}
	if reasons["bigtext"] != models.SkipTooLarge {
		t.Errorf("bigtext skip reason = %s, want too_large", reasons["bigtext"])
	}
}

func TestScanDeepModeIgnoresThresholds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.txt", "0123456789012345678901234567890123456789\nAPI_KEY\n")

	cfg := testConfig(root)
	cfg.MaxFileSize = 20
	cfg.MaxLines = 1
	cfg.Deep = true
	result := scanTree(t, cfg)

	if result.Summary.FilesScanned != 1 {
		t.Fatalf("deep mode skipped the large file: %+v", result.Skipped)
	}
	if result.Summary.TotalFindings != 1 {
		t.Errorf("found %d findings, want 1", result.Summary.TotalFindings)
	}
	if result.Mode != "deep" {
		t.Errorf("mode = %s, want deep", result.Mode)
	}
}

func TestScanBinaryHandling(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tool.exe", "MZ\x00\x01binary")
	writeFile(t, root, "mystery", "\x00\x01\x02\x03")
	writeFile(t, root, "main.go", "package main\n")

	// safe mode: binaries are skipped
	safe := scanTree(t, testConfig(root))
	if safe.Summary.FilesScanned != 1 {
		t.Errorf("safe mode scanned %d files, want 1", safe.Summary.FilesScanned)
	}
	for _, s := range safe.Skipped {
		if s.Reason != models.SkipBinary {
			t.Errorf("%s skip reason = %s, want binary", s.Path, s.Reason)
		}
	}

	// deep mode: binaries are recorded without evaluation
	cfg := testConfig(root)
	cfg.Deep = true
	deep := scanTree(t, cfg)
	if deep.Summary.FilesScanned != 3 {
		t.Fatalf("deep mode scanned %d files, want 3", deep.Summary.FilesScanned)
	}
	rec := deep.Files["tool.exe"]
	if !rec.IsBinary {
		t.Error("tool.exe not marked binary")
	}
	if rec.LineCount != nil {
		t.Error("binary file has a line count")
	}
	if len(rec.Findings) != 0 {
		t.Error("binary file has findings")
	}
	if rec.Checksum == "" {
		t.Error("binary file missing checksum")
	}
}

func TestScanReadErrorBecomesSkip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.go", "package ok\n")
	if err := os.Symlink(filepath.Join(root, "missing-target"), filepath.Join(root, "dangling")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	result := scanTree(t, testConfig(root))

	if result.Summary.FilesScanned != 1 {
		t.Errorf("scanned %d files, want 1", result.Summary.FilesScanned)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != models.SkipReadError {
		t.Errorf("expected one read_error skip, got %+v", result.Skipped)
	}
	if result.Skipped[0].Path != "dangling" {
		t.Errorf("skip path = %s, want dangling", result.Skipped[0].Path)
	}
}

func TestScanOnlyPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "pkg/util.go", "package pkg\n")
	writeFile(t, root, "README.md", "# readme\n")

	cfg := testConfig(root)
	cfg.OnlyPatterns = []string{"*.go"}
	result := scanTree(t, cfg)

	if result.Summary.FilesScanned != 2 {
		t.Errorf("scanned %d files, want 2", result.Summary.FilesScanned)
	}
	if _, ok := result.Files["README.md"]; ok {
		t.Error("README.md scanned despite allow list")
	}
}

func TestScanInterrupted(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, root, filepath.Join("sub", string(rune('a'+i%26))+".txt"), "content\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(t, testConfig(root)).Scan(ctx)
	if !errors.Is(err, ErrInterrupted) {
		t.Errorf("err = %v, want ErrInterrupted", err)
	}
}

func TestScanRootMissing(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"))
	_, err := newTestEngine(t, cfg).Scan(context.Background())
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxLines = 0
	if _, err := NewEngine(cfg, testRules(t), stubGate{}, nil); err == nil {
		t.Error("expected validation error")
	}

	cfg = testConfig(t.TempDir())
	cfg.IgnorePatterns = []string{"[bad"}
	if _, err := NewEngine(cfg, testRules(t), stubGate{}, nil); err == nil {
		t.Error("expected glob error")
	}
}

func TestScanSkipsSortedByPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "z.exe", "bin")
	writeFile(t, root, "a.exe", "bin")
	writeFile(t, root, "m.exe", "bin")

	result := scanTree(t, testConfig(root))
	if len(result.Skipped) != 3 {
		t.Fatalf("got %d skips, want 3", len(result.Skipped))
	}
	for i := 1; i < len(result.Skipped); i++ {
		if result.Skipped[i-1].Path > result.Skipped[i].Path {
			t.Errorf("skips not sorted: %s before %s", result.Skipped[i-1].Path, result.Skipped[i].Path)
		}
	}
}
