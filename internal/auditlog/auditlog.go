// Package auditlog keeps an encrypted, append-only trail of audit
// operations. Each line is one sealed record: base64(nonce || box).
package auditlog

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// Record is one audit trail entry.
type Record struct {
	Timestamp        time.Time `json:"timestamp"`
	User             string    `json:"user"`
	OpID             string    `json:"opId"`
	Root             string    `json:"root"`
	Fingerprint      string    `json:"fingerprint"`
	ComplianceStatus string    `json:"complianceStatus,omitempty"`
	Artifacts        []string  `json:"artifacts,omitempty"`
}

// Log appends sealed records to a single file using a locally stored
// symmetric key.
type Log struct {
	path    string
	keyPath string
}

func New(path, keyPath string) *Log {
	return &Log{path: path, keyPath: keyPath}
}

// ensureKey loads the key, generating one on first use. The key file
// is owner-only.
func (l *Log) ensureKey() ([]byte, error) {
	key, err := os.ReadFile(l.keyPath)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("audit log key has wrong size: %d bytes", len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read audit log key: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate audit log key: %w", err)
	}
	if err := os.WriteFile(l.keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write audit log key: %w", err)
	}
	return key, nil
}

// Append seals one record and appends it as a line.
func (l *Log) Append(rec Record) error {
	key, err := l.ensureKey()
	if err != nil {
		return err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("failed to initialize cipher: %w", err)
	}

	plaintext, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, base64.StdEncoding.EncodeToString(sealed)); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// Read decrypts every record in the log.
func (l *Log) Read() ([]Record, error) {
	key, err := l.ensureKey()
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		sealed, err := base64.StdEncoding.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("audit log line %d: invalid encoding: %w", lineNo, err)
		}
		if len(sealed) < aead.NonceSize() {
			return nil, fmt.Errorf("audit log line %d: record too short", lineNo)
		}
		nonce, box := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
		plaintext, err := aead.Open(nil, nonce, box, nil)
		if err != nil {
			return nil, fmt.Errorf("audit log line %d: decryption failed: %w", lineNo, err)
		}
		var rec Record
		if err := json.Unmarshal(plaintext, &rec); err != nil {
			return nil, fmt.Errorf("audit log line %d: invalid record: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return records, nil
}
