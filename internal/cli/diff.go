package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/repoaudit/repoaudit/internal/baseline"
	"github.com/repoaudit/repoaudit/internal/differ"
	"github.com/repoaudit/repoaudit/internal/observability/logging"
	"github.com/repoaudit/repoaudit/internal/scanner"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "Compare a fresh scan against the accepted baseline",
	Long: `Scans the tree and compares the result against the saved baseline,
reporting regressions, improvements, and file churn.

Exit codes: 0 clean or improved_only, 1 regressed, 2 error, 130 interrupted.

Examples:
  repoaudit diff
  repoaudit diff /path/to/repo --baseline custom-baseline.json --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

var (
	diffSharedFlags  scanFlags
	diffBaselineFlag string
	diffJSONFlag     bool
)

func init() {
	diffSharedFlags.register(diffCmd)
	diffCmd.Flags().StringVarP(&diffBaselineFlag, "baseline", "b", baseline.DefaultPath, "Baseline file to compare against")
	diffCmd.Flags().BoolVar(&diffJSONFlag, "json", false, "Emit the comparison as JSON")
}

// GetDiffCmd exports the diff command
func GetDiffCmd() *cobra.Command {
	return diffCmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.From(ctx)
	start := time.Now()

	manager := baseline.NewManager()
	base, err := manager.Load(diffBaselineFlag)
	if err != nil {
		return err
	}

	root := rootArg(args)
	cfg, err := diffSharedFlags.resolveConfig(cmd, root)
	if err != nil {
		return err
	}

	log.Event(ctx, "diff.start", map[string]any{"root": root, "baseline": diffBaselineFlag})

	current, err := performScan(ctx, cfg, diffSharedFlags.policyName)
	if errors.Is(err, scanner.ErrInterrupted) {
		fmt.Fprintln(os.Stderr, "scan interrupted")
		exit(exitInterrupted)
	}
	if err != nil {
		return err
	}

	result, err := differ.NewEngine().Compare(base, current)
	if err != nil {
		return err
	}

	log.Event(ctx, "diff.complete", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"verdict":     string(result.Verdict),
	})

	if diffJSONFlag {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal diff result: %w", err)
		}
		fmt.Println(string(data))
	} else {
		printDiff(result)
	}

	if result.Verdict == differ.VerdictRegressed {
		exit(exitFindings)
	}
	return nil
}

func printDiff(result *differ.Result) {
	quiet := len(result.Regressions) == 0 && len(result.Improvements) == 0 &&
		len(result.NewFiles) == 0 && len(result.RemovedFiles) == 0 &&
		len(result.ChangedFiles) == 0

	switch result.Verdict {
	case differ.VerdictRegressed:
		fmt.Printf("%s✗ REGRESSED%s\n\n", colorRed, colorReset)
	case differ.VerdictImprovedOnly:
		fmt.Printf("%s✓ Improved%s\n\n", colorGreen, colorReset)
	default:
		if quiet {
			fmt.Printf("%s✓ No changes detected - tree matches baseline%s\n", colorGreen, colorReset)
			return
		}
		fmt.Printf("%s✓ Clean%s\n\n", colorGreen, colorReset)
	}

	for _, d := range result.Regressions {
		fmt.Printf("%s[~] %s%s\n", colorRed, d.Path, colorReset)
		fmt.Printf("    findings: %d -> %d\n", len(d.OldFindings), len(d.NewFindings))
	}
	for _, d := range result.NewFiles {
		fmt.Printf("%s[+] %s%s", colorYellow, d.Path, colorReset)
		if len(d.NewFindings) > 0 {
			fmt.Printf(" (%d findings)", len(d.NewFindings))
		}
		fmt.Println()
	}
	for _, d := range result.RemovedFiles {
		fmt.Printf("%s[-] %s%s\n", colorYellow, d.Path, colorReset)
	}
	for _, d := range result.Improvements {
		fmt.Printf("%s[~] %s%s\n", colorGreen, d.Path, colorReset)
		fmt.Printf("    findings: %d -> %d\n", len(d.OldFindings), len(d.NewFindings))
	}
	for _, p := range result.ChangedFiles {
		fmt.Printf("[~] %s (content changed, findings unchanged)\n", p)
	}
}
