package cli

import (
	"fmt"
	"os"

	"github.com/repoaudit/repoaudit/internal/crypto"
	"github.com/spf13/cobra"
)

const (
	defaultPrivateKeyPath = "private.key"
	defaultPublicKeyPath  = "public.key"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 keypair for signing reports",
	Long: `Generate a new Ed25519 keypair for signing audit reports.

This creates two files:
  - private.key: Keep this secret! Used to sign reports.
  - public.key:  Share this with your team to verify signatures.

Example:
  repoaudit keygen
  repoaudit keygen --private my-private.key --public my-public.key`,
	RunE: runKeygen,
}

var (
	keygenPrivateFlag string
	keygenPublicFlag  string
)

func init() {
	keygenCmd.Flags().StringVar(&keygenPrivateFlag, "private", defaultPrivateKeyPath, "Path for the private key file")
	keygenCmd.Flags().StringVar(&keygenPublicFlag, "public", defaultPublicKeyPath, "Path for the public key file")
}

// GetKeygenCmd exports the keygen command
func GetKeygenCmd() *cobra.Command {
	return keygenCmd
}

func runKeygen(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(keygenPrivateFlag); err == nil {
		return fmt.Errorf("private key already exists at %s (use different path or delete existing)", keygenPrivateFlag)
	}
	if _, err := os.Stat(keygenPublicFlag); err == nil {
		return fmt.Errorf("public key already exists at %s (use different path or delete existing)", keygenPublicFlag)
	}

	fmt.Println("Generating Ed25519 keypair...")
	if err := crypto.GenerateKeys(keygenPrivateFlag, keygenPublicFlag); err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}

	fmt.Printf("%s✓ Private key saved: %s%s\n", colorGreen, keygenPrivateFlag, colorReset)
	fmt.Printf("%s✓ Public key saved:  %s%s\n", colorGreen, keygenPublicFlag, colorReset)
	fmt.Printf("\n%s⚠ Keep your private key secret!%s\n", colorRed, colorReset)

	return nil
}

var signCmd = &cobra.Command{
	Use:   "sign <report>",
	Short: "Sign a report file with your private key",
	Long: `Sign a report file using your Ed25519 private key.

This creates a detached signature (<report>.sig) that can be used to
verify the report hasn't been tampered with.

Example:
  repoaudit sign report.json
  repoaudit sign report.json --key my-private.key`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

var signKeyFlag string

func init() {
	signCmd.Flags().StringVarP(&signKeyFlag, "key", "k", defaultPrivateKeyPath, "Path to the private key")
}

// GetSignCmd exports the sign command
func GetSignCmd() *cobra.Command {
	return signCmd
}

func runSign(cmd *cobra.Command, args []string) error {
	sigPath, err := crypto.SignFile(args[0], signKeyFlag)
	if err != nil {
		return fmt.Errorf("signing failed: %w", err)
	}

	fmt.Printf("%s✓ Signature saved: %s%s\n", colorGreen, sigPath, colorReset)
	return nil
}

var verifyCmd = &cobra.Command{
	Use:   "verify <report>",
	Short: "Verify a report against its detached signature",
	Long: `Verify a report file against its detached signature (<report>.sig)
using the team's Ed25519 public key.

Exit codes: 0 valid, 1 invalid, 2 error.

Example:
  repoaudit verify report.json
  repoaudit verify report.json --key my-public.key`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

var verifyKeyFlag string

func init() {
	verifyCmd.Flags().StringVarP(&verifyKeyFlag, "key", "k", defaultPublicKeyPath, "Path to the public key")
}

// GetVerifyCmd exports the verify command
func GetVerifyCmd() *cobra.Command {
	return verifyCmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	valid, err := crypto.VerifyFile(args[0], verifyKeyFlag)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if !valid {
		fmt.Printf("%s✗ INVALID signature for %s%s\n", colorRed, args[0], colorReset)
		exit(exitFindings)
	}

	fmt.Printf("%s✓ Valid signature for %s%s\n", colorGreen, args[0], colorReset)
	return nil
}
