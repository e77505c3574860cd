// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete hcert CLI command tree: key
// generation, certificate issuance, verification, inspection, trust
// store management, and CBOR diagnostics.
package commands
