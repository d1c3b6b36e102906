// fieldctl is the operator tool for one-off field-crypto jobs: sealing and
// opening single values, and re-keying a whole record subtree after a
// passphrase rotation. It reuses the same cipher and transformer the daemon
// uses; nothing here bypasses the wire format.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fieldguard/internal/platform"
)

func main() {
	if err := platform.DisableCoreDumps(); err != nil {
		fmt.Fprintf(os.Stderr, "fieldctl: core dump hardening failed: %v\n", err)
	}

	root := &cobra.Command{
		Use:           "fieldctl",
		Short:         "Operate on field-encrypted records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSealCmd(), newOpenCmd(), newRekeyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fieldctl: %v\n", err)
		os.Exit(1)
	}
}

// passphraseFromEnv resolves a passphrase indirectly so it never appears in
// argv or shell history.
func passphraseFromEnv(envName string) (string, error) {
	if envName == "" {
		return "", fmt.Errorf("passphrase env var name required")
	}
	v := os.Getenv(envName)
	if v == "" {
		return "", fmt.Errorf("env var %s is empty", envName)
	}
	return v, nil
}
