// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the health-certificate payload record carried
// inside the claims token and validates it structurally.
//
// The record follows the EU Digital Covid Certificate shape: a schema
// version, a machine-transliterated holder name, a date of birth, and
// exactly one event group (vaccination, test, or recovery). Field
// names use the DCC's short json tags, which serve as both the CBOR
// map keys inside the token and the JSON keys in CLI output.
//
// Validation here is structural only — required fields, date formats,
// the one-group rule. Whether the certificate is trustworthy is the
// signature layer's business, and whether it is still valid is the
// orchestrator's.
package schema
