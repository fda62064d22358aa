package cli

import (
	"encoding/json"
	"fmt"

	"github.com/repoaudit/repoaudit/internal/observability/logging"
	"github.com/repoaudit/repoaudit/internal/ruleset"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [path]",
	Short: "List the resolved rule set for a repository",
	Long: `Resolves built-in rules plus configured and flag-supplied rule files,
applying override and severity-escalation semantics, and prints the
result in evaluation order.

Examples:
  repoaudit rules
  repoaudit rules --rules team-rules.yaml --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

var (
	rulesSharedFlags scanFlags
	rulesJSONFlag    bool
)

func init() {
	rulesSharedFlags.register(rulesCmd)
	rulesCmd.Flags().BoolVar(&rulesJSONFlag, "json", false, "Emit the rule set as JSON")
}

// GetRulesCmd exports the rules command
func GetRulesCmd() *cobra.Command {
	return rulesCmd
}

func runRules(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.From(ctx)

	root := rootArg(args)
	cfg, err := rulesSharedFlags.resolveConfig(cmd, root)
	if err != nil {
		return err
	}

	builtin, err := ruleset.Builtin()
	if err != nil {
		return fmt.Errorf("failed to load built-in rules: %w", err)
	}
	rules, err := ruleset.Build(builtin, cfg.RuleSources, log)
	if err != nil {
		return err
	}

	if rulesJSONFlag {
		out := make([]any, 0, rules.Len())
		for _, r := range rules.Rules() {
			out = append(out, r.Rule)
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal rules: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%d rules resolved\n\n", rules.Len())
	for _, r := range rules.Rules() {
		fmt.Printf("%-32s %-8s %d pattern(s)", r.ID, string(r.Severity), len(r.Patterns))
		if r.Category != "" {
			fmt.Printf("  [%s]", r.Category)
		}
		fmt.Println()
		if r.Description != "" {
			fmt.Printf("    %s\n", r.Description)
		}
	}
	return nil
}
