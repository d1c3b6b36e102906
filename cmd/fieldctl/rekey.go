package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/hkdf"

	"fieldguard/internal/fields"
	"fieldguard/internal/record"
)

func newRekeyCmd() *cobra.Command {
	var (
		mongoURI   string
		mongoDB    string
		coll       string
		prefix     string
		kind       string
		oldPassEnv string
		newPassEnv string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "rekey",
		Short: "Decrypt and re-encrypt every record under a path prefix with a new passphrase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			oldPass, err := passphraseFromEnv(oldPassEnv)
			if err != nil {
				return err
			}
			newPass, err := passphraseFromEnv(newPassEnv)
			if err != nil {
				return err
			}
			spec, ok := fields.SpecForKind(kind)
			if !ok {
				return fmt.Errorf("unknown record kind %q", kind)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			cli, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
			cancel()
			if err != nil {
				return err
			}
			defer cli.Disconnect(context.Background())

			store := record.NewMongoStore(cli, mongoDB, coll)
			logger := log.New(os.Stderr, "rekey: ", log.LstdFlags)
			return rekey(cmd.Context(), cmd.OutOrStdout(), store, spec, prefix, oldPass, newPass, dryRun, logger)
		},
	}

	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection string")
	cmd.Flags().StringVar(&mongoDB, "db", "fieldguard", "database name")
	cmd.Flags().StringVar(&coll, "collection", "records", "records collection")
	cmd.Flags().StringVar(&prefix, "prefix", "", "record path prefix, e.g. tenants/acme/employees")
	cmd.Flags().StringVar(&kind, "kind", "", "record kind (employee, bankAccount, payrollRun, personalSettings)")
	cmd.Flags().StringVar(&oldPassEnv, "old-pass-env", "FIELDGUARD_OLD_PASS", "env var holding the current passphrase")
	cmd.Flags().StringVar(&newPassEnv, "new-pass-env", "FIELDGUARD_NEW_PASS", "env var holding the replacement passphrase")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decrypt-check only, write nothing")
	_ = cmd.MarkFlagRequired("mongo-uri")
	_ = cmd.MarkFlagRequired("prefix")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

// rekey walks every record directly under prefix: decrypt with the old
// passphrase, re-encrypt with the new one, write back. A record that does
// not decrypt cleanly is skipped and reported; the run continues so one bad
// record cannot strand the rest of a rotation.
func rekey(ctx context.Context, out io.Writer, store record.Store, spec fields.Spec, prefix, oldPass, newPass string, dryRun bool, logger *log.Logger) error {
	xform := fields.NewTransformer(logger)

	paths, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no records under %q", prefix)
	}

	var done, skipped []string
	for _, p := range paths {
		rec, err := store.Get(ctx, p)
		if err != nil {
			logger.Printf("%s: %v", p, err)
			skipped = append(skipped, p)
			continue
		}
		plain, res := xform.Decrypt(rec, spec, oldPass)
		if !res.FullyApplied() {
			logger.Printf("%s: %d field(s) did not decrypt, skipping", p, len(res.Failed))
			skipped = append(skipped, p)
			continue
		}
		sealed, res := xform.Encrypt(plain, spec, newPass)
		if !res.FullyApplied() {
			logger.Printf("%s: %d field(s) did not re-encrypt, skipping", p, len(res.Failed))
			skipped = append(skipped, p)
			continue
		}
		if !dryRun {
			if err := store.Set(ctx, p, sealed); err != nil {
				return fmt.Errorf("write back %s: %w", p, err)
			}
		}
		done = append(done, p)
	}

	fmt.Fprintf(out, "rekeyed %d record(s), skipped %d\n", len(done), len(skipped))
	fmt.Fprintf(out, "confirmation %s\n", confirmationDigest(newPass, done))
	return nil
}

// confirmationDigest derives a short value over the re-keyed path set with
// HKDF so two operators can compare runs without exchanging the passphrase.
func confirmationDigest(newPass string, paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	h := sha256.New()
	for _, p := range sorted {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	r := hkdf.New(sha256.New, []byte(newPass), h.Sum(nil), []byte("fieldguard/rekey/v1"))
	out := make([]byte, 8)
	_, _ = io.ReadFull(r, out)
	return hex.EncodeToString(out)
}
