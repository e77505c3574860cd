// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/hcert-foundation/hcert/cmd/hcert/cli"
	"github.com/hcert-foundation/hcert/lib/truststore"
)

func trustCommand() *cli.Command {
	return &cli.Command{
		Name:    "trust",
		Summary: "Manage the verifier's trust anchors",
		Description: `Manage the trust store: the set of issuer certificates a verifier
accepts signatures from.

The store is a JSON document (comments and trailing commas allowed
when hand-edited). Anchors are identified by kid, the truncated
digest of the issuer certificate; adding a certificate with an
existing kid replaces that anchor.`,
		Subcommands: []*cli.Command{
			trustAddCommand(),
			trustListCommand(),
			trustRemoveCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Trust an issuer certificate",
				Command:     "hcert trust add issuer.pem",
			},
			{
				Description: "List trusted issuers",
				Command:     "hcert trust list",
			},
			{
				Description: "Revoke trust by kid",
				Command:     "hcert trust remove 1ea49211371e19b4",
			},
		},
	}
}

func trustAddCommand() *cli.Command {
	var (
		configPath     string
		truststorePath string
		subject        string
	)

	return &cli.Command{
		Name:    "add",
		Summary: "Add an issuer certificate to the trust store",
		Usage:   "hcert trust add <certificate.pem> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("trust add", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "configuration file path")
			flagSet.StringVar(&truststorePath, "truststore", "", "trust anchor document")
			flagSet.StringVar(&subject, "subject", "", "override the anchor's display label")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("trust add takes exactly one certificate file argument")
			}

			truststorePath, err := resolveTruststorePath(configPath, truststorePath)
			if err != nil {
				return err
			}
			set, err := loadOrEmptyTruststore(truststorePath)
			if err != nil {
				return err
			}

			certificate, err := readCertificateFile(args[0])
			if err != nil {
				return err
			}
			anchor := truststore.NewAnchor(certificate)
			if subject != "" {
				anchor.Subject = subject
			}
			set.Add(anchor)

			if err := set.Save(truststorePath); err != nil {
				return err
			}
			fmt.Printf("added %s (kid %s)\n", anchor.Subject, hex.EncodeToString(anchor.KID))
			return nil
		},
	}
}

func trustListCommand() *cli.Command {
	var (
		configPath     string
		truststorePath string
	)

	return &cli.Command{
		Name:    "list",
		Summary: "List trusted issuers",
		Usage:   "hcert trust list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("trust list", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "configuration file path")
			flagSet.StringVar(&truststorePath, "truststore", "", "trust anchor document")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("trust list takes no positional arguments, got %q", args[0])
			}

			truststorePath, err := resolveTruststorePath(configPath, truststorePath)
			if err != nil {
				return err
			}
			set, err := loadOrEmptyTruststore(truststorePath)
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "KID\tSUBJECT\tVALID UNTIL")
			for _, anchor := range set.Anchors() {
				fmt.Fprintf(writer, "%s\t%s\t%s\n",
					hex.EncodeToString(anchor.KID),
					anchor.Subject,
					anchor.NotAfter.Format(time.RFC3339),
				)
			}
			return writer.Flush()
		},
	}
}

func trustRemoveCommand() *cli.Command {
	var (
		configPath     string
		truststorePath string
	)

	return &cli.Command{
		Name:    "remove",
		Summary: "Remove a trust anchor by kid",
		Usage:   "hcert trust remove <kid-hex> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("trust remove", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "configuration file path")
			flagSet.StringVar(&truststorePath, "truststore", "", "trust anchor document")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("trust remove takes exactly one kid argument")
			}
			kid, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("kid %q is not hex: %w", args[0], err)
			}

			truststorePath, err := resolveTruststorePath(configPath, truststorePath)
			if err != nil {
				return err
			}
			set, err := truststore.Load(truststorePath)
			if err != nil {
				return err
			}
			if err := set.Remove(kid); err != nil {
				return err
			}
			if err := set.Save(truststorePath); err != nil {
				return err
			}
			fmt.Printf("removed kid %s\n", args[0])
			return nil
		},
	}
}

func resolveTruststorePath(configPath, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	config, err := loadConfig(configPath)
	if err != nil {
		return "", err
	}
	return config.Truststore, nil
}

// loadOrEmptyTruststore treats a missing store file as an empty store,
// so "trust add" works on a fresh machine.
func loadOrEmptyTruststore(path string) (*truststore.Set, error) {
	set, err := truststore.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &truststore.Set{}, nil
	}
	return set, err
}

// readCertificateFile parses an issuer certificate from PEM or raw
// DER.
func readCertificateFile(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading certificate: %w", err)
	}
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
	certificate, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("no certificate in %s: %w", path, err)
	}
	return certificate, nil
}
