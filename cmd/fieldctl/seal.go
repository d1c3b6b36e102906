package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fieldguard/internal/cipher"
)

func newSealCmd() *cobra.Command {
	var passEnv string
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Encrypt a single value from stdin, print the marked ciphertext",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pass, err := passphraseFromEnv(passEnv)
			if err != nil {
				return err
			}
			in, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && in == "" {
				return fmt.Errorf("read stdin: %w", err)
			}
			out, err := cipher.EncryptWithMarker(strings.TrimRight(in, "\r\n"), pass)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&passEnv, "pass-env", "FIELDGUARD_PASS", "env var holding the passphrase")
	return cmd
}

func newOpenCmd() *cobra.Command {
	var passEnv string
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Decrypt a single marked value from stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pass, err := passphraseFromEnv(passEnv)
			if err != nil {
				return err
			}
			in, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && in == "" {
				return fmt.Errorf("read stdin: %w", err)
			}
			out, err := cipher.DecryptWithMarker(strings.TrimRight(in, "\r\n"), pass)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&passEnv, "pass-env", "FIELDGUARD_PASS", "env var holding the passphrase")
	return cmd
}
