// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package truststore manages the verifier's trust anchors: the issuer
// certificates whose keys are accepted when validating a signed
// certificate token.
//
// The store is a flat document of anchors, pre-populated out of band
// (trust-list distribution is outside this module). On disk it is
// JSONC — comments and trailing commas are tolerated on read, and the
// file is written back as plain JSON.
//
// Anchors are identified by an 8-byte key identifier: the truncated
// SHA-256 of the certificate's DER encoding. That truncation rule is
// an interop constant — signer and verifier must derive the same kid
// from the same certificate.
package truststore
