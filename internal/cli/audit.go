package cli

import (
	"encoding/json"
	"fmt"

	"github.com/repoaudit/repoaudit/internal/auditlog"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit <log-file>",
	Short: "Decrypt and print the audit trail",
	Long: `Decrypts an encrypted audit trail written by 'repoaudit scan
--audit-log' and prints its records as JSON lines.

Example:
  repoaudit audit audit.log
  repoaudit audit audit.log --key audit.key`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

var auditCmdKeyFlag string

func init() {
	auditCmd.Flags().StringVarP(&auditCmdKeyFlag, "key", "k", "", "Audit trail key file (default <log-file>.key)")
}

// GetAuditCmd exports the audit command
func GetAuditCmd() *cobra.Command {
	return auditCmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	keyPath := auditCmdKeyFlag
	if keyPath == "" {
		keyPath = args[0] + ".key"
	}

	records, err := auditlog.New(args[0], keyPath).Read()
	if err != nil {
		return err
	}

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal audit record: %w", err)
		}
		fmt.Println(string(data))
	}
	return nil
}
