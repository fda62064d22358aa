package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/repoaudit/repoaudit/internal/auditlog"
	"github.com/repoaudit/repoaudit/internal/crypto"
	"github.com/repoaudit/repoaudit/internal/models"
	"github.com/repoaudit/repoaudit/internal/observability"
	"github.com/repoaudit/repoaudit/internal/observability/logging"
	otelobs "github.com/repoaudit/repoaudit/internal/observability/otel"
	"github.com/repoaudit/repoaudit/internal/report"
	"github.com/repoaudit/repoaudit/internal/scanner"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a repository tree against the resolved rule set",
	Long: `Walks the tree, classifies files, evaluates rules, and emits a report.

Exit codes: 0 compliance pass or warn, 1 compliance fail,
2 configuration or runtime error, 130 interrupted.

Examples:
  repoaudit scan
  repoaudit scan /path/to/repo --deep --format markdown -o report.md
  repoaudit scan --rules team-rules.yaml --policy strict`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

var (
	scanSharedFlags scanFlags
	scanFormatFlag  string
	scanOutputFlag  string
	scanSignFlag    bool
	scanKeyFlag     string
	auditLogFlag    string
	auditKeyFlag    string
)

func init() {
	scanSharedFlags.register(scanCmd)
	scanCmd.Flags().StringVarP(&scanFormatFlag, "format", "f", "json", "Report format (json, jsonl, markdown)")
	scanCmd.Flags().StringVarP(&scanOutputFlag, "output", "o", "", "Write the report to a file instead of stdout")
	scanCmd.Flags().BoolVar(&scanSignFlag, "sign", false, "Sign the report file (requires --output and --key)")
	scanCmd.Flags().StringVarP(&scanKeyFlag, "key", "k", defaultPrivateKeyPath, "Path to the private key for --sign")
	scanCmd.Flags().StringVar(&auditLogFlag, "audit-log", "", "Append an encrypted audit trail record to this file")
	scanCmd.Flags().StringVar(&auditKeyFlag, "audit-key", "", "Audit trail key file (default <audit-log>.key)")
}

// GetScanCmd exports the scan command
func GetScanCmd() *cobra.Command {
	return scanCmd
}

func runScan(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	log := logging.From(ctx)
	start := time.Now()

	format, err := report.ParseFormat(scanFormatFlag)
	if err != nil {
		return err
	}
	if scanSignFlag && scanOutputFlag == "" {
		return fmt.Errorf("--sign requires --output")
	}

	root := rootArg(args)
	cfg, err := scanSharedFlags.resolveConfig(cmd, root)
	if err != nil {
		return err
	}

	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "repoaudit.scan",
			trace.WithAttributes(
				attribute.String("repoaudit.op_id", observability.OpID(ctx)),
				attribute.String("repoaudit.command", "scan"),
				attribute.String("repoaudit.root", root),
				attribute.String("repoaudit.mode", cfg.Mode()),
			))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed")
			} else {
				span.SetStatus(codes.Ok, "success")
			}
			span.End()
		}()
	}

	log.Event(ctx, "scan.start", map[string]any{"root": root, "mode": cfg.Mode()})

	var resultStatus string
	defer func() {
		log.Event(ctx, "scan.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	result, scanErr := performScan(ctx, cfg, scanSharedFlags.policyName)
	if errors.Is(scanErr, scanner.ErrInterrupted) {
		resultStatus = "interrupted"
		fmt.Fprintln(os.Stderr, "scan interrupted")
		exit(exitInterrupted)
	}
	if scanErr != nil {
		resultStatus = "fail"
		return scanErr
	}

	if scanOutputFlag != "" {
		if err := report.Write(result, format, scanOutputFlag); err != nil {
			resultStatus = "fail"
			return err
		}
	} else {
		data, err := report.Render(result, format)
		if err != nil {
			resultStatus = "fail"
			return err
		}
		os.Stdout.Write(data)
	}

	var artifacts []string
	if scanOutputFlag != "" {
		artifacts = append(artifacts, scanOutputFlag)
	}
	if scanSignFlag {
		sigPath, err := crypto.SignFile(scanOutputFlag, scanKeyFlag)
		if err != nil {
			resultStatus = "fail"
			return fmt.Errorf("signing failed: %w", err)
		}
		artifacts = append(artifacts, sigPath)
		fmt.Fprintf(os.Stderr, "%s✓ Signature saved: %s%s\n", colorGreen, sigPath, colorReset)
	}

	if auditLogFlag != "" {
		if err := appendAuditRecord(ctx, result, artifacts); err != nil {
			resultStatus = "fail"
			return err
		}
	}

	resultStatus = "success"
	if result.Summary.ComplianceStatus == models.ComplianceFail {
		fmt.Fprintf(os.Stderr, "%s✗ Compliance check failed%s\n", colorRed, colorReset)
		exit(exitFindings)
	}
	if result.Summary.ComplianceStatus == models.ComplianceWarn {
		fmt.Fprintf(os.Stderr, "%s⚠ Compliance warnings present%s\n", colorYellow, colorReset)
	}
	return nil
}

func appendAuditRecord(ctx context.Context, result *models.ScanResult, artifacts []string) error {
	keyPath := auditKeyFlag
	if keyPath == "" {
		keyPath = auditLogFlag + ".key"
	}
	trail := auditlog.New(auditLogFlag, keyPath)
	return trail.Append(auditlog.Record{
		Timestamp:        time.Now().UTC(),
		User:             currentUsername(),
		OpID:             observability.OpID(ctx),
		Root:             result.Root,
		Fingerprint:      result.RootFingerprint,
		ComplianceStatus: result.Summary.ComplianceStatus,
		Artifacts:        artifacts,
	})
}

func currentUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
