// Package baseline persists accepted scan results for later
// comparison.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/repoaudit/repoaudit/internal/models"
)

// DefaultPath is the conventional baseline location at the repository
// root.
const DefaultPath = ".repoaudit.baseline.json"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Save writes the result as a baseline, pretty-printed with a trailing
// newline for clean git diffs.
func (m *Manager) Save(result *models.ScanResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}

// Load reads and validates a baseline file.
func (m *Manager) Load(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse baseline: %w", err)
	}

	if result.Version != models.ReportVersion {
		return nil, fmt.Errorf("unsupported baseline version %q (expected %q)", result.Version, models.ReportVersion)
	}
	if result.RootFingerprint == "" {
		return nil, fmt.Errorf("baseline has no root fingerprint")
	}
	return &result, nil
}

func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
