package models

import "testing"

func TestSeverityOrdering(t *testing.T) {
	order := []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s should rank below %s", order[i-1], order[i])
		}
	}
	if Severity("bogus").Rank() != -1 {
		t.Error("unknown severity should rank below info")
	}
}

func TestParseSeverity(t *testing.T) {
	got, err := ParseSeverity("  CRITICAL ")
	if err != nil {
		t.Fatalf("ParseSeverity failed: %v", err)
	}
	if got != SeverityCritical {
		t.Errorf("got %s, want critical", got)
	}

	if _, err := ParseSeverity("urgent"); err == nil {
		t.Error("expected error for unknown severity")
	}
}

func TestMaxSeverity(t *testing.T) {
	if MaxSeverity(SeverityLow, SeverityHigh) != SeverityHigh {
		t.Error("max(low, high) should be high")
	}
	if MaxSeverity(SeverityCritical, SeverityInfo) != SeverityCritical {
		t.Error("max(critical, info) should be critical")
	}
	if MaxSeverity(SeverityMedium, SeverityMedium) != SeverityMedium {
		t.Error("max of equals should be stable")
	}
}

func TestSeverityTally(t *testing.T) {
	var tally SeverityTally
	for _, s := range Severities {
		tally.Add(s)
	}
	tally.Add(SeverityCritical)
	tally.Add(Severity("bogus")) // ignored

	if tally.Critical != 2 || tally.High != 1 || tally.Total() != 6 {
		t.Errorf("tally = %+v, total = %d", tally, tally.Total())
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Root: "/repo", MaxFileSize: DefaultMaxFileSize, MaxLines: DefaultMaxLines}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.Root = ""
	if err := bad.Validate(); err == nil {
		t.Error("empty root accepted")
	}

	bad = cfg
	bad.MaxFileSize = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero max file size accepted")
	}

	bad = cfg
	bad.Parallelism = -1
	if err := bad.Validate(); err == nil {
		t.Error("negative parallelism accepted")
	}
}

func TestConfigMode(t *testing.T) {
	if (Config{}).Mode() != "safe" {
		t.Error("default mode should be safe")
	}
	if (Config{Deep: true}).Mode() != "deep" {
		t.Error("deep flag should select deep mode")
	}
}
