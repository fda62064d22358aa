// Package fingerprint computes deterministic content digests: per-file
// checksums, the whole-repository root fingerprint, and canonical JSON
// hashes for baseline and signing payloads.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Checksum sha256 hex of file content.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Root hashes path||digest pairs in sorted-path order. Two scans of
// byte-identical trees produce identical fingerprints regardless of
// scan concurrency or host OS.
func Root(digests map[string]string) string {
	paths := make([]string, 0, len(digests))
	for p := range digests {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(digests[p]))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashString sha256
func HashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return fmt.Sprintf("sha256:%x", hash)
}

// HashJSON canonical sha256
func HashJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}

	canonical, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize JSON: %w", err)
	}

	hash := sha256.Sum256(canonical)
	return fmt.Sprintf("sha256:%x", hash), nil
}
