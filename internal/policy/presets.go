package policy

import (
	"embed"
	"fmt"

	"github.com/repoaudit/repoaudit/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

var presetCache = map[string]*models.CompliancePolicy{}

var presetFiles = map[string]string{
	"default": "presets/default.yaml",
	"strict":  "presets/strict.yaml",
}

// GetPreset returns a built-in policy by name, or nil if not found.
func GetPreset(name string) *models.CompliancePolicy {
	if cached, ok := presetCache[name]; ok {
		return cached
	}

	path, ok := presetFiles[name]
	if !ok {
		return nil
	}

	data, err := presetFS.ReadFile(path)
	if err != nil {
		return nil
	}

	var policy models.CompliancePolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil
	}

	presetCache[name] = &policy
	return &policy
}

// ListPresetNames returns the names of all built-in policies.
func ListPresetNames() []string {
	names := make([]string, 0, len(presetFiles))
	for name := range presetFiles {
		names = append(names, name)
	}
	return names
}

// MustGetPreset returns a preset or panics (for tests).
func MustGetPreset(name string) *models.CompliancePolicy {
	p := GetPreset(name)
	if p == nil {
		panic(fmt.Sprintf("preset %q not found", name))
	}
	return p
}

// LoadPolicyFile parses a policy from YAML on disk.
func LoadPolicyFile(data []byte) (*models.CompliancePolicy, error) {
	var policy models.CompliancePolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if len(policy.Rules) == 0 {
		return nil, fmt.Errorf("policy has no rules")
	}
	return &policy, nil
}
