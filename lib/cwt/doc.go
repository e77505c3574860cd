// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package cwt implements the CBOR Web Token (RFC 8392) claims model:
// an ordered map of integer-or-text claim keys to CBOR values, with a
// builder for construction, a deterministic binary encoding, and typed
// accessors for the standard issuer, issued-at, and expiration claims.
//
// A Claims value is immutable once built. Claim values are stored as
// raw CBOR and decoded on demand, so arbitrary issuer-defined claims
// survive a decode/encode cycle untouched.
//
// Date-valued claims use the NumericDate representation: epoch seconds
// as an untagged integer. RFC 8392 §2 explicitly drops the tag 1
// wrapping that generic CBOR date values carry; decoders here still
// accept tag 0 (text date) and tag 1 (numeric date) wrappings for
// interoperability with encoders that deviate.
package cwt
