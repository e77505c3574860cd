// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hcert-foundation/hcert/cmd/hcert/cli"
	"github.com/hcert-foundation/hcert/lib/barcode"
	"github.com/hcert-foundation/hcert/lib/keystore"
	"github.com/hcert-foundation/hcert/lib/transport"
)

// readTransportText resolves a command-line certificate reference to
// its transport text form. The input may be:
//
//   - a literal "HC1:..." string,
//   - "-" for stdin (text or image bytes),
//   - a path to a text file holding the transport string,
//   - a path to a barcode image, which gets scanned.
func readTransportText(input string) (string, error) {
	if strings.HasPrefix(input, transport.Prefix) {
		return input, nil
	}

	var data []byte
	var err error
	if input == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(input)
		if err != nil {
			return "", fmt.Errorf("reading certificate input: %w", err)
		}
	}

	if text := strings.TrimSpace(string(data)); strings.HasPrefix(text, transport.Prefix) {
		return text, nil
	}

	text, err := barcode.Scan(data)
	if err != nil {
		return "", fmt.Errorf("input is neither transport text nor a scannable barcode: %w", err)
	}
	return text, nil
}

// loadCredential opens the issuer bundle, prompting for the passphrase
// only when the bundle is actually sealed.
func loadCredential(path string) (*keystore.Credential, error) {
	credential, err := keystore.Load(path, "")
	if err == nil {
		return credential, nil
	}
	if !errors.Is(err, keystore.ErrWrongPassphrase) {
		return nil, err
	}
	passphrase, err := cli.ReadPassphrase("Keystore passphrase")
	if err != nil {
		return nil, err
	}
	return keystore.Load(path, passphrase)
}
