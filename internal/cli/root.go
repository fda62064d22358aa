// Package cli wires the repoaudit commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/repoaudit/repoaudit/internal/observability"
	"github.com/repoaudit/repoaudit/internal/observability/logging"
	otelobs "github.com/repoaudit/repoaudit/internal/observability/otel"
	"github.com/repoaudit/repoaudit/internal/version"
	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// Exit codes
const (
	exitOK          = 0
	exitFindings    = 1
	exitError       = 2
	exitInterrupted = 130
)

var rootCmd = &cobra.Command{
	Use:   "repoaudit",
	Short: "Repository auditing engine",
	Long: `repoaudit: concurrent repository auditing.
Scans a source tree against built-in and custom rules, fingerprints the
result, and compares it to an accepted baseline.`,
	Version:           version.BuildVersion(),
	SilenceUsage:      true,
	PersistentPreRunE: setupContext,
}

var (
	logFormatFlag string
	logLevelFlag  string
	logOutputFlag string

	otelFlag            bool
	otelEndpointFlag    string
	otelProtocolFlag    string
	otelInsecureFlag    bool
	otelSampleRatioFlag float64
)

// cleanupFns run in reverse order before the process exits.
var cleanupFns []func()

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logFormatFlag, "log-format", "pretty", "Log format (pretty or jsonl)")
	pf.StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logOutputFlag, "log-output", "stderr", "Log output (stderr or file path)")

	pf.BoolVar(&otelFlag, "otel", false, "Enable OpenTelemetry tracing")
	pf.StringVar(&otelEndpointFlag, "otel-endpoint", "", "OTLP endpoint (defaults per protocol)")
	pf.StringVar(&otelProtocolFlag, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol (otlphttp or otlpgrpc)")
	pf.BoolVar(&otelInsecureFlag, "otel-insecure", false, "Allow insecure OTLP connections")
	pf.Float64Var(&otelSampleRatioFlag, "otel-sample-ratio", 1.0, "Trace sampling ratio (0..1)")

	rootCmd.AddCommand(GetScanCmd())
	rootCmd.AddCommand(GetBaselineCmd())
	rootCmd.AddCommand(GetDiffCmd())
	rootCmd.AddCommand(GetRulesCmd())
	rootCmd.AddCommand(GetKeygenCmd())
	rootCmd.AddCommand(GetSignCmd())
	rootCmd.AddCommand(GetVerifyCmd())
	rootCmd.AddCommand(GetAuditCmd())
}

// setupContext installs the op id, logger, and optional OTel handle on
// the command context before any subcommand runs.
func setupContext(cmd *cobra.Command, args []string) error {
	ctx := observability.WithOpID(cmd.Context())

	log, err := logging.NewLogger(logging.Config{
		Format: logFormatFlag,
		Level:  logLevelFlag,
		Output: logOutputFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	cleanupFns = append(cleanupFns, func() { _ = log.Close() })
	ctx = logging.WithLogger(ctx, log)

	if otelFlag {
		handle, err := otelobs.Init(ctx, otelobs.Config{
			Enabled:     true,
			Endpoint:    otelEndpointFlag,
			Protocol:    otelProtocolFlag,
			Insecure:    otelInsecureFlag,
			ServiceName: "repoaudit",
			SampleRatio: otelSampleRatioFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		cleanupFns = append(cleanupFns, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = handle.Shutdown(shutdownCtx)
		})
		ctx = otelobs.WithHandle(ctx, handle)
	}

	cmd.SetContext(ctx)
	return nil
}

func runCleanup() {
	for i := len(cleanupFns) - 1; i >= 0; i-- {
		cleanupFns[i]()
	}
	cleanupFns = nil
}

// exit flushes observability sinks before terminating with code.
func exit(code int) {
	runCleanup()
	os.Exit(code)
}

// ExecuteContext runs the CLI. Command errors are runtime or
// configuration failures and exit with code 2; verdict-driven exits
// happen inside the commands.
func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	runCleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}
