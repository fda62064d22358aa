// Package config resolves scan configuration from files, environment,
// and defaults. The scan engine never reads configuration itself.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/repoaudit/repoaudit/internal/models"
	"github.com/repoaudit/repoaudit/internal/scanner"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigName is looked up at the scan root (.repoaudit.yaml).
	ProjectConfigName = ".repoaudit"
	envPrefix         = "REPOAUDIT"
)

// Load resolves the configuration for one scan root. Precedence, low
// to high: defaults, project file at the root, REPOAUDIT_*
// environment. CLI flags are layered on top by the caller. The global
// config dir contributes shared rules (rules.yaml) only.
func Load(root string) (models.Config, error) {
	cfg := models.Config{Root: root}

	v := viper.New()
	v.SetConfigName(ProjectConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(root)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("deep", false)
	v.SetDefault("max_file_size", models.DefaultMaxFileSize)
	v.SetDefault("max_lines", models.DefaultMaxLines)
	v.SetDefault("encoding", models.DefaultEncoding)
	v.SetDefault("parallelism", 0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("config: %w", err)
		}
	}

	cfg.Deep = v.GetBool("deep")
	cfg.MaxFileSize = v.GetInt64("max_file_size")
	cfg.MaxLines = v.GetInt("max_lines")
	cfg.Encoding = v.GetString("encoding")
	cfg.Parallelism = v.GetInt("parallelism")
	cfg.OnlyPatterns = v.GetStringSlice("only")

	cfg.IgnorePatterns = append([]string{}, scanner.DefaultIgnorePatterns...)
	cfg.IgnorePatterns = append(cfg.IgnorePatterns, v.GetStringSlice("ignore")...)

	// rule sources in precedence order: global first, project second,
	// CLI files appended later by the caller
	if dir := globalConfigDir(); dir != "" {
		globalRules := filepath.Join(dir, "rules.yaml")
		if _, err := os.Stat(globalRules); err == nil {
			src, err := LoadRuleFile(globalRules, "global")
			if err != nil {
				return cfg, err
			}
			cfg.RuleSources = append(cfg.RuleSources, src)
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		src, err := LoadRuleFile(used, "project")
		if err != nil {
			return cfg, err
		}
		if len(src.Rules) > 0 {
			cfg.RuleSources = append(cfg.RuleSources, src)
		}
	}

	return cfg, nil
}

// LoadRuleFile parses the rules section of a YAML file into one
// named rule source.
func LoadRuleFile(path, name string) (models.RuleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RuleSource{}, fmt.Errorf("config: failed to read rule file: %w", err)
	}

	var doc struct {
		Rules []models.Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.RuleSource{}, fmt.Errorf("config: failed to parse rule file %s: %w", path, err)
	}

	return models.RuleSource{Name: name, Rules: doc.Rules}, nil
}

// globalConfigDir is $XDG_CONFIG_HOME/repoaudit, falling back to
// ~/.config/repoaudit; empty when neither resolves.
func globalConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "repoaudit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "repoaudit")
}
