// Package ruleset resolves built-in and external rules into the
// immutable rule set shared by all scan workers.
package ruleset

import (
	"embed"
	"fmt"
	"sync"

	"github.com/repoaudit/repoaudit/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

var (
	builtinOnce  sync.Once
	builtinRules []models.Rule
	builtinErr   error
)

// Builtin returns the embedded default rules.
func Builtin() ([]models.Rule, error) {
	builtinOnce.Do(func() {
		data, err := builtinFS.ReadFile("builtin/builtin.yaml")
		if err != nil {
			builtinErr = fmt.Errorf("failed to read built-in rules: %w", err)
			return
		}
		var doc struct {
			Rules []models.Rule `yaml:"rules"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			builtinErr = fmt.Errorf("failed to parse built-in rules: %w", err)
			return
		}
		builtinRules = doc.Rules
	})
	return builtinRules, builtinErr
}
