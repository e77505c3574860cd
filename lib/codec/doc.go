// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides hcert's standard CBOR encoding configuration.
//
// Every certificate artifact in this module is CBOR: the claims token
// (CWT), the COSE_Sign1 envelope around it, and the health-certificate
// payload carried inside claim -260. This package provides the shared
// encoding and decoding modes so that every package encodes identically
// without duplicating configuration.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes, which is what makes a
// detached signature over the claims bytes stable.
//
// The decoder is configured for untrusted input — the bytes come off a
// scanned barcode. Duplicate map keys are rejected rather than silently
// resolved last-write-wins, and the library's nesting and element
// limits stay at their bounded defaults.
//
// # Struct Tag Rules
//
// Types in this module carry `json` struct tags, not `cbor` tags:
// fxamacker/cbor reads `json` tags as fallback, so a single tag
// controls field naming for both the CBOR wire form and CLI --json
// output. The health-certificate payload schema names its fields this
// way deliberately — the same record must render as JSON for
// inspection tooling and as CBOR inside the token.
package codec
