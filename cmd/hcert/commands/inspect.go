// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/hcert-foundation/hcert/cmd/hcert/cli"
	"github.com/hcert-foundation/hcert/lib/certificate"
	"github.com/hcert-foundation/hcert/lib/codec"
)

func inspectCommand() *cli.Command {
	var rawClaims bool

	return &cli.Command{
		Name:    "inspect",
		Summary: "Decode a certificate without verifying it",
		Description: `Decode a certificate's layers and print the signature parameters and
the claims content in CBOR diagnostic notation.

Nothing is verified: no trust store is consulted and the signature
is not checked. The output shows what the token CLAIMS, which is
only meaningful after "hcert verify" has vouched for it. Useful for
debugging interop problems and for looking inside foreign
certificates.`,
		Usage: "hcert inspect <input> [flags]",
		Examples: []cli.Example{
			{
				Description: "Inspect a barcode image",
				Command:     "hcert inspect cert.png",
			},
			{
				Description: "Dump the raw claims bytes as hex",
				Command:     "hcert inspect cert.png --raw",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flagSet.BoolVar(&rawClaims, "raw", false, "print the claims bytes as hex instead of diagnostic notation")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("inspect takes exactly one input argument")
			}

			text, err := readTransportText(args[0])
			if err != nil {
				return err
			}
			unverified, err := certificate.Inspect(text)
			if err != nil {
				return err
			}

			fmt.Printf("algorithm: %s\n", unverified.Algorithm)
			if len(unverified.KID) > 0 {
				fmt.Printf("kid:       %s\n", hex.EncodeToString(unverified.KID))
			} else {
				fmt.Printf("kid:       (none)\n")
			}
			fmt.Printf("signed:    %d bytes, claims %d bytes\n",
				len(unverified.Signed), len(unverified.ClaimsBytes))

			if rawClaims {
				fmt.Printf("claims:    %s\n", hex.EncodeToString(unverified.ClaimsBytes))
				return nil
			}
			notation, err := codec.Diagnose(unverified.ClaimsBytes)
			if err != nil {
				return fmt.Errorf("diagnosing claims: %w", err)
			}
			fmt.Printf("claims:    %s\n", notation)
			return nil
		},
	}
}
