// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command-tree framework for the hcert binary:
// nested subcommand dispatch with typo suggestions, lazy pflag flag
// sets, structured help output, exit-code signalling, and the shared
// logger and passphrase prompt.
package cli
