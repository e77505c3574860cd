// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrPassphraseMismatch means the two entries of a confirmed
// passphrase prompt did not match.
var ErrPassphraseMismatch = errors.New("cli: passphrases do not match")

// ReadPassphrase prompts on stderr and reads a passphrase from stdin
// without echo. When stdin is not a terminal (tests, scripts piping
// the passphrase in), it reads one line instead.
func ReadPassphrase(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadNewPassphrase prompts twice and requires both entries to match,
// for passphrases that protect something being created.
func ReadNewPassphrase(prompt string) (string, error) {
	first, err := ReadPassphrase(prompt)
	if err != nil {
		return "", err
	}
	second, err := ReadPassphrase(prompt + " (again)")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrPassphraseMismatch
	}
	return first, nil
}
