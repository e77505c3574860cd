// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/hcert-foundation/hcert/cmd/hcert/cli"
	"github.com/hcert-foundation/hcert/lib/certificate"
	"github.com/hcert-foundation/hcert/lib/cose"
	"github.com/hcert-foundation/hcert/lib/schema"
)

func issueCommand() *cli.Command {
	var (
		configPath   string
		keystorePath string
		issuer       string
		validity     time.Duration
		output       string
		printText    bool
		size         int
	)

	return &cli.Command{
		Name:    "issue",
		Summary: "Issue a signed certificate barcode from a payload file",
		Description: `Read a JSON payload record, validate it against the schema, sign it
as a claims token, and write the resulting barcode.

The output format follows the --output extension: .png for raster,
.svg for vector, .txt for the bare transport string. "-" writes the
transport string to stdout.

Flag values override the configuration file; the issuer claim falls
back to the credential certificate's subject name when neither is
set.`,
		Usage: "hcert issue <payload.json> [flags]",
		Examples: []cli.Example{
			{
				Description: "Issue a certificate, 180-day validity from config",
				Command:     "hcert issue payload.json --output cert.png",
			},
			{
				Description: "Print-quality vector output with explicit validity",
				Command:     "hcert issue payload.json --output cert.svg --validity 8760h",
			},
			{
				Description: "Pipe the transport string to another tool",
				Command:     "hcert issue payload.json --output - | qrencode -o cert.png",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("issue", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "configuration file path")
			flagSet.StringVar(&keystorePath, "keystore", "", "issuer credential bundle")
			flagSet.StringVar(&issuer, "issuer", "", "issuer claim value")
			flagSet.DurationVar(&validity, "validity", 0, "certificate lifetime from now")
			flagSet.StringVar(&output, "output", "cert.png", "output path (.png, .svg, .txt, or -)")
			flagSet.BoolVar(&printText, "print-text", false, "also print the transport string to stdout")
			flagSet.IntVar(&size, "size", 0, "raster edge length in pixels")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("issue takes exactly one payload file argument")
			}

			config, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if keystorePath == "" {
				keystorePath = config.Keystore
			}
			if issuer == "" {
				issuer = config.Issuer
			}
			if validity == 0 {
				validity, err = config.validityDuration()
				if err != nil {
					return err
				}
			}
			if size == 0 {
				size = config.BarcodeSize
			}

			payload, err := readPayload(args[0])
			if err != nil {
				return err
			}

			credential, err := loadCredential(keystorePath)
			if err != nil {
				return err
			}
			if issuer == "" {
				issuer = credential.Certificate.Subject.CommonName
			}
			signer, err := cose.NewSigner(credential.Key, cose.WithKeyID(credential.KeyID()))
			if err != nil {
				return err
			}

			encoder := &certificate.Encoder{
				Signer:      signer,
				Issuer:      issuer,
				Payload:     schema.Codec{},
				BarcodeSize: size,
			}
			issued, err := encoder.Encode(payload, time.Now().Add(validity))
			if err != nil {
				return err
			}

			if err := writeIssued(issued, output); err != nil {
				return err
			}
			if printText && output != "-" {
				fmt.Println(issued.Text)
			}

			logger := cli.NewCommandLogger().With("command", "issue")
			logger.Info("certificate issued",
				"holder", payload.DisplayName(),
				"issuer", issuer,
				"expires", issued.Expiration.Format(time.RFC3339),
				"output", output,
			)
			return nil
		},
	}
}

// readPayload parses and validates a JSON payload record. Unknown
// fields are an error: a typoed field name silently dropped from a
// signed health document is worse than a rejection.
func readPayload(path string) (*schema.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}

	payload := &schema.Certificate{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("parsing payload %s: %w", path, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeIssued(issued *certificate.Issued, output string) error {
	if output == "-" {
		fmt.Println(issued.Text)
		return nil
	}

	var data []byte
	switch {
	case strings.HasSuffix(output, ".svg"):
		data = issued.Barcode.SVG
	case strings.HasSuffix(output, ".txt"):
		data = []byte(issued.Text + "\n")
	default:
		data = issued.Barcode.PNG
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}
