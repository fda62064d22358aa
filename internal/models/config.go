package models

import (
	"fmt"
	"runtime"
)

// Default safe-mode thresholds.
const (
	DefaultMaxFileSize = int64(10 << 20) // 10 MiB
	DefaultMaxLines    = 5000
	DefaultEncoding    = "utf-8"
)

// Config is the fully resolved configuration handed to the scan
// engine. The configuration loader resolves files, environment, and
// flags before the core ever runs; the core performs no config I/O.
type Config struct {
	Root           string
	Deep           bool // deep mode disables safe-mode thresholds
	MaxFileSize    int64
	MaxLines       int
	Encoding       string
	IgnorePatterns []string // ordered: defaults, ignore file, CLI
	OnlyPatterns   []string // allow list; empty means everything
	Parallelism    int      // 0 means runtime.NumCPU()
	RuleSources    []RuleSource
}

// Mode names the scanning mode for reports.
func (c Config) Mode() string {
	if c.Deep {
		return "deep"
	}
	return "safe"
}

// Workers resolves the effective worker-pool size.
func (c Config) Workers() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.NumCPU()
}

// Validate reports configuration errors. These are fatal before any
// scan starts.
func (c Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("config: root path is required")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("config: max file size must be positive, got %d", c.MaxFileSize)
	}
	if c.MaxLines <= 0 {
		return fmt.Errorf("config: max lines must be positive, got %d", c.MaxLines)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("config: parallelism must be >= 0, got %d", c.Parallelism)
	}
	return nil
}
