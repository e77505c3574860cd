// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hcert-foundation/hcert/cmd/hcert/cli"
	"github.com/hcert-foundation/hcert/lib/codec"
	"github.com/hcert-foundation/hcert/lib/transport"
)

func diagCommand() *cli.Command {
	return &cli.Command{
		Name:    "diag",
		Summary: "Print CBOR diagnostic notation for a token or file",
		Description: `Read CBOR and write RFC 8949 Extended Diagnostic Notation to stdout.

Input starting with the transport prefix is first decompressed to
the signed token bytes, so "hcert diag cert.txt" shows the
COSE_Sign1 structure directly. Anything else is treated as raw
CBOR; a CBOR sequence prints one line per item.

Unlike JSON output, diagnostic notation preserves CBOR type
information: integer vs float, byte strings vs text strings,
integer map keys, and tagged values. This is the exact wire shape
a foreign verifier sees.`,
		Usage: "hcert diag [file]",
		Examples: []cli.Example{
			{
				Description: "Show the signed-token structure of a certificate",
				Command:     "hcert diag cert.txt",
			},
			{
				Description: "Diagnose raw CBOR from a pipe",
				Command:     "hcert diag < token.cbor",
			},
		},
		Run: func(args []string) error {
			var data []byte
			var err error
			switch len(args) {
			case 0:
				data, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
			case 1:
				data, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
			default:
				return fmt.Errorf("diag takes at most one file argument")
			}
			if len(data) == 0 {
				return fmt.Errorf("empty input: expected CBOR data")
			}

			if text := strings.TrimSpace(string(data)); strings.HasPrefix(text, transport.Prefix) {
				data, err = transport.Decode(text)
				if err != nil {
					return err
				}
			}
			return diagCBOR(data, os.Stdout)
		},
	}
}

// diagCBOR writes diagnostic notation for data to w, one line per
// sequence item.
func diagCBOR(data []byte, w io.Writer) error {
	remaining := data
	for len(remaining) > 0 {
		notation, rest, err := codec.DiagnoseFirst(remaining)
		if err != nil {
			offset := len(data) - len(remaining)
			return fmt.Errorf("diagnose CBOR at byte %d: %w", offset, err)
		}
		if _, err := fmt.Fprintln(w, notation); err != nil {
			return err
		}
		remaining = rest
	}
	return nil
}
