package fingerprint

import (
	"strings"
	"testing"
)

func TestChecksum(t *testing.T) {
	// sha256 of empty input is a fixed constant
	got := Checksum(nil)
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("Checksum(nil) = %s, want %s", got, want)
	}

	if Checksum([]byte("a")) == Checksum([]byte("b")) {
		t.Error("different content produced identical checksums")
	}
}

func TestRootDeterministic(t *testing.T) {
	a := map[string]string{
		"main.go":       Checksum([]byte("package main")),
		"internal/x.go": Checksum([]byte("package x")),
		"README.md":     Checksum([]byte("# readme")),
	}
	// same pairs, different construction order
	b := map[string]string{}
	b["README.md"] = a["README.md"]
	b["internal/x.go"] = a["internal/x.go"]
	b["main.go"] = a["main.go"]

	if Root(a) != Root(b) {
		t.Error("identical digest maps produced different root fingerprints")
	}
}

func TestRootSensitivity(t *testing.T) {
	base := map[string]string{"a.go": "d1", "b.go": "d2"}

	changed := map[string]string{"a.go": "d1", "b.go": "d3"}
	if Root(base) == Root(changed) {
		t.Error("changed digest did not change root fingerprint")
	}

	renamed := map[string]string{"a.go": "d1", "c.go": "d2"}
	if Root(base) == Root(renamed) {
		t.Error("renamed path did not change root fingerprint")
	}
}

func TestRootEmpty(t *testing.T) {
	if Root(nil) != Root(map[string]string{}) {
		t.Error("empty and nil digest maps disagree")
	}
}

func TestHashString(t *testing.T) {
	got := HashString("hello")
	if !strings.HasPrefix(got, "sha256:") {
		t.Errorf("HashString missing prefix: %s", got)
	}
	if got != HashString("hello") {
		t.Error("HashString is not deterministic")
	}
}

func TestHashJSONNil(t *testing.T) {
	got, err := HashJSON(nil)
	if err != nil {
		t.Fatalf("HashJSON(nil) error: %v", err)
	}
	if got != "" {
		t.Errorf("HashJSON(nil) = %q, want empty", got)
	}
}
