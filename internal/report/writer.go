// Package report renders finished scan results to the supported
// output formats.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/repoaudit/repoaudit/internal/fingerprint"
	"github.com/repoaudit/repoaudit/internal/models"
)

// Format selects a renderer.
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name from the CLI.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatJSONL, FormatMarkdown:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported report format %q (use json, jsonl, or markdown)", s)
}

// Envelope wraps a report line for append-only JSONL streams.
type Envelope struct {
	ScanID      string             `json:"scanId"`
	Timestamp   time.Time          `json:"timestamp"`
	User        string             `json:"user"`
	Fingerprint string             `json:"fingerprint"`
	Report      *models.ScanResult `json:"report"`
}

// Render serializes the result in the requested format.
func Render(result *models.ScanResult, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		return append(data, '\n'), nil
	case FormatJSONL:
		return renderJSONL(result)
	case FormatMarkdown:
		return renderMarkdown(result), nil
	}
	return nil, fmt.Errorf("unsupported report format %q", format)
}

func renderJSONL(result *models.ScanResult) ([]byte, error) {
	env := Envelope{
		ScanID:      result.ScanID,
		Timestamp:   result.Timestamp,
		User:        currentUser(),
		Fingerprint: result.RootFingerprint,
		Report:      result,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report envelope: %w", err)
	}
	return append(data, '\n'), nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// Write renders and writes atomically: temp file in the target
// directory, then rename. JSONL output appends instead, one envelope
// per scan.
func Write(result *models.ScanResult, format Format, path string) error {
	data, err := Render(result, format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if format == FormatJSONL {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open report file: %w", err)
		}
		defer f.Close()
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to append report: %w", err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(dir, ".repoaudit-report-*")
	if err != nil {
		return fmt.Errorf("failed to create temp report: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	return nil
}

// CanonicalDigest hashes the canonical JSON form of the result, for
// signing and audit trail entries.
func CanonicalDigest(result *models.ScanResult) (string, error) {
	return fingerprint.HashJSON(result)
}
