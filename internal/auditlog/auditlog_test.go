package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "audit.log"), filepath.Join(dir, "audit.key"))
}

func sampleRecord(opID string) Record {
	return Record{
		Timestamp:        time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		User:             "auditor",
		OpID:             opID,
		Root:             "/repo",
		Fingerprint:      "fp-1",
		ComplianceStatus: "pass",
		Artifacts:        []string{"report.json", "report.json.sig"},
	}
}

func TestAppendReadRoundtrip(t *testing.T) {
	log := testLog(t)

	if err := log.Append(sampleRecord("op-1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := log.Append(sampleRecord("op-2")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].OpID != "op-1" || records[1].OpID != "op-2" {
		t.Errorf("record order lost: %s, %s", records[0].OpID, records[1].OpID)
	}
	if records[0].Fingerprint != "fp-1" || records[0].User != "auditor" {
		t.Errorf("record fields lost: %+v", records[0])
	}
}

func TestLogIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.log")
	log := New(logPath, filepath.Join(dir, "audit.key"))

	if err := log.Append(sampleRecord("op-1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, leaked := range []string{"auditor", "fp-1", "/repo", "opId"} {
		if strings.Contains(string(raw), leaked) {
			t.Errorf("plaintext %q leaked into the log file", leaked)
		}
	}
}

func TestKeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "audit.key")
	log := New(filepath.Join(dir, "audit.log"), keyPath)

	if err := log.Append(sampleRecord("op-1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestReadMissingLog(t *testing.T) {
	records, err := testLog(t).Read()
	if err != nil {
		t.Fatalf("Read of missing log failed: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records, got %d", len(records))
	}
}

func TestReadRejectsWrongKey(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.log")

	writer := New(logPath, filepath.Join(dir, "key-a"))
	if err := writer.Append(sampleRecord("op-1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reader := New(logPath, filepath.Join(dir, "key-b"))
	if _, err := reader.Read(); err == nil {
		t.Error("expected decryption failure with the wrong key")
	}
}

func TestReadRejectsTampering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.log")
	log := New(logPath, filepath.Join(dir, "audit.key"))

	if err := log.Append(sampleRecord("op-1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := os.WriteFile(logPath, []byte("bm90IGEgcmVhbCByZWNvcmQ=\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := log.Read(); err == nil {
		t.Error("expected error for tampered log")
	}
}
