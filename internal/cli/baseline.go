package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/repoaudit/repoaudit/internal/baseline"
	"github.com/repoaudit/repoaudit/internal/observability/logging"
	"github.com/repoaudit/repoaudit/internal/scanner"
	"github.com/spf13/cobra"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline [path]",
	Short: "Scan and save the result as the accepted baseline",
	Long: `Runs a scan and stores the finalized result as the baseline that
future 'repoaudit diff' runs compare against.

Examples:
  repoaudit baseline
  repoaudit baseline /path/to/repo --output custom-baseline.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBaseline,
}

var (
	baselineSharedFlags scanFlags
	baselineOutputFlag  string
	baselineForceFlag   bool
)

func init() {
	baselineSharedFlags.register(baselineCmd)
	baselineCmd.Flags().StringVarP(&baselineOutputFlag, "output", "o", baseline.DefaultPath, "Baseline file path")
	baselineCmd.Flags().BoolVar(&baselineForceFlag, "force", false, "Overwrite an existing baseline")
}

// GetBaselineCmd exports the baseline command
func GetBaselineCmd() *cobra.Command {
	return baselineCmd
}

func runBaseline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.From(ctx)
	start := time.Now()

	manager := baseline.NewManager()
	if manager.Exists(baselineOutputFlag) && !baselineForceFlag {
		return fmt.Errorf("baseline already exists at %s (use --force to overwrite)", baselineOutputFlag)
	}

	root := rootArg(args)
	cfg, err := baselineSharedFlags.resolveConfig(cmd, root)
	if err != nil {
		return err
	}

	log.Event(ctx, "baseline.start", map[string]any{"root": root})

	result, err := performScan(ctx, cfg, baselineSharedFlags.policyName)
	if errors.Is(err, scanner.ErrInterrupted) {
		fmt.Fprintln(os.Stderr, "scan interrupted")
		exit(exitInterrupted)
	}
	if err != nil {
		return err
	}

	if err := manager.Save(result, baselineOutputFlag); err != nil {
		return err
	}

	log.Event(ctx, "baseline.complete", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"fingerprint": result.RootFingerprint,
	})

	fmt.Printf("%s✓ Baseline saved: %s%s\n", colorGreen, baselineOutputFlag, colorReset)
	fmt.Printf("  Files: %d  Findings: %d  Fingerprint: %s\n",
		result.Summary.FilesScanned, result.Summary.TotalFindings, result.RootFingerprint)
	return nil
}
