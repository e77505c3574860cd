// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/hcert-foundation/hcert/cmd/hcert/cli"
	"github.com/hcert-foundation/hcert/lib/keystore"
)

func keygenCommand() *cli.Command {
	var (
		keystorePath string
		subject      string
		validity     time.Duration
		seal         bool
	)

	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an issuer signing credential",
		Description: `Generate a fresh ECDSA P-256 signing key with a self-signed
certificate and write both to a credential bundle.

With --seal, the bundle is encrypted with a passphrase (age scrypt,
armored). Without it, the bundle is plaintext PEM — acceptable for
development, not for production issuer keys.

The printed key identifier (kid) is what verifiers see in the signed
token's protected header; it is derived from the certificate, so
distributing the certificate into a trust store is all an issuer
needs to do to be recognized.`,
		Usage: "hcert keygen --subject <name> [flags]",
		Examples: []cli.Example{
			{
				Description: "Generate a sealed production credential",
				Command:     "hcert keygen --subject 'Swedish eHealth Agency' --seal",
			},
			{
				Description: "Generate a throwaway development credential",
				Command:     "hcert keygen --subject dev --keystore dev.pem",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVar(&keystorePath, "keystore", "issuer.pem", "output path for the credential bundle")
			flagSet.StringVar(&subject, "subject", "", "certificate subject name (required)")
			flagSet.DurationVar(&validity, "validity", 2*365*24*time.Hour, "certificate validity window")
			flagSet.BoolVar(&seal, "seal", false, "encrypt the bundle with a passphrase")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("keygen takes no positional arguments, got %q", args[0])
			}
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			credential, err := keystore.Generate(subject, validity)
			if err != nil {
				return err
			}

			passphrase := ""
			if seal {
				passphrase, err = cli.ReadNewPassphrase("Keystore passphrase")
				if err != nil {
					return err
				}
			}
			if err := keystore.Save(credential, keystorePath, passphrase); err != nil {
				return err
			}

			logger := cli.NewCommandLogger().With("command", "keygen")
			logger.Info("credential generated",
				"subject", subject,
				"kid", hex.EncodeToString(credential.KeyID()),
				"keystore", keystorePath,
				"not_after", credential.Certificate.NotAfter.Format(time.RFC3339),
				"sealed", seal,
			)
			fmt.Printf("kid: %s\n", hex.EncodeToString(credential.KeyID()))
			return nil
		},
	}
}
