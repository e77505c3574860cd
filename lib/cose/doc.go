// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package cose signs and verifies claims tokens as COSE_Sign1
// structures (RFC 9052): the four-element tuple of protected header,
// unprotected header, payload, and detached signature, wrapped in CBOR
// tag 18.
//
// Signing is a pure function of the payload bytes and the key: the
// signature covers the Sig_structure, which binds the protected header
// (algorithm, key id) to the payload. The signing algorithm is chosen
// from the key type — ECDSA keys sign with the ES variant matching
// their curve, RSA keys with RSA-PSS. PKCS#1 v1.5 (RS256) is accepted
// on verify for interoperability but never selected for signing.
//
// Verification runs against a set of candidate trust anchors, not a
// single key: an offline verifier holds the whole issuer population.
// Anchors whose kid matches the message's hint are tried first, the
// rest in order. On failure the caller learns only that verification
// failed — not which anchors were tried or why each one rejected the
// signature.
package cose
