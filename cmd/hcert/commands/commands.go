// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/hcert-foundation/hcert/cmd/hcert/cli"
)

// Root builds and returns the complete hcert CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "hcert",
		Description: `hcert: issue and verify digital health certificates.

Certificates are compact signed tokens carried in QR codes, verified
offline against a local trust store. The issuing side signs a schema-
validated payload; the verifying side accepts nothing the trust store
has not vouched for.`,
		Subcommands: []*cli.Command{
			keygenCommand(),
			issueCommand(),
			verifyCommand(),
			inspectCommand(),
			trustCommand(),
			diagCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Generate an issuer credential (start here)",
				Command:     "hcert keygen --subject 'Swedish eHealth Agency' --seal",
			},
			{
				Description: "Issue a certificate barcode from a payload file",
				Command:     "hcert issue payload.json --output cert.png",
			},
			{
				Description: "Trust an issuer on the verifying side",
				Command:     "hcert trust add issuer.pem",
			},
			{
				Description: "Verify a scanned barcode",
				Command:     "hcert verify cert.png",
			},
			{
				Description: "Look inside a foreign certificate without verifying",
				Command:     "hcert inspect cert.png",
			},
		},
	}
}
