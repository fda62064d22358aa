package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/repoaudit/repoaudit/internal/config"
	"github.com/repoaudit/repoaudit/internal/models"
	"github.com/repoaudit/repoaudit/internal/observability/logging"
	"github.com/repoaudit/repoaudit/internal/policy"
	"github.com/repoaudit/repoaudit/internal/ruleset"
	"github.com/repoaudit/repoaudit/internal/scanner"
	"github.com/spf13/cobra"
)

// scanFlags are the shared scan-tuning flags used by scan, baseline,
// and diff.
type scanFlags struct {
	deep        bool
	maxFileSize int64
	maxLines    int
	ignore      []string
	only        []string
	parallelism int
	rules       []string
	policyName  string
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.deep, "deep", false, "Deep mode: no size/line thresholds, record binary files")
	cmd.Flags().Int64Var(&f.maxFileSize, "max-file-size", models.DefaultMaxFileSize, "Safe-mode file size threshold in bytes")
	cmd.Flags().IntVar(&f.maxLines, "max-lines", models.DefaultMaxLines, "Safe-mode line count threshold")
	cmd.Flags().StringSliceVar(&f.ignore, "ignore", nil, "Additional ignore patterns (gitignore-style globs)")
	cmd.Flags().StringSliceVar(&f.only, "only", nil, "Restrict scanning to files matching these globs")
	cmd.Flags().IntVar(&f.parallelism, "parallelism", 0, "Worker pool size (0 = number of CPUs)")
	cmd.Flags().StringSliceVar(&f.rules, "rules", nil, "Additional rule files (YAML)")
	cmd.Flags().StringVar(&f.policyName, "policy", "default", "Compliance policy: preset name or YAML file path")
}

// resolveConfig loads file/env configuration for root and layers the
// command's flags on top. Flags win only when set.
func (f *scanFlags) resolveConfig(cmd *cobra.Command, root string) (models.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("deep") {
		cfg.Deep = f.deep
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSize = f.maxFileSize
	}
	if flags.Changed("max-lines") {
		cfg.MaxLines = f.maxLines
	}
	if flags.Changed("parallelism") {
		cfg.Parallelism = f.parallelism
	}
	cfg.IgnorePatterns = append(cfg.IgnorePatterns, f.ignore...)
	cfg.OnlyPatterns = append(cfg.OnlyPatterns, f.only...)

	for _, path := range f.rules {
		src, err := config.LoadRuleFile(path, path)
		if err != nil {
			return cfg, err
		}
		cfg.RuleSources = append(cfg.RuleSources, src)
	}

	return cfg, nil
}

// resolvePolicy treats the flag as a preset name first, then as a
// file path.
func resolvePolicy(name string) (*models.CompliancePolicy, error) {
	if p := policy.GetPreset(name); p != nil {
		return p, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unknown policy %q: not a preset (%v) and not a readable file: %w",
			name, policy.ListPresetNames(), err)
	}
	return policy.LoadPolicyFile(data)
}

// performScan builds the rule set, compiles the policy gate, and runs
// one scan.
func performScan(ctx context.Context, cfg models.Config, policyName string) (*models.ScanResult, error) {
	log := logging.From(ctx)

	builtin, err := ruleset.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in rules: %w", err)
	}
	rules, err := ruleset.Build(builtin, cfg.RuleSources, log)
	if err != nil {
		return nil, err
	}

	pol, err := resolvePolicy(policyName)
	if err != nil {
		return nil, err
	}
	gate, err := policy.NewGate(pol)
	if err != nil {
		return nil, err
	}

	engine, err := scanner.NewEngine(cfg, rules, gate, log)
	if err != nil {
		return nil, err
	}
	return engine.Scan(ctx)
}

// rootArg resolves the positional scan root, defaulting to the current
// directory.
func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
