// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package certificate composes the claims token, signature, and
// transport layers into the two operations everything else calls:
// issue a payload as a signed barcode, and decode a scanned barcode
// back to a verified payload.
//
// The decode side enforces the trust ordering the layers below cannot:
// the signature is verified before any claim is interpreted, the
// payload is parsed against the schema next, and only then is the
// expiration compared to the clock — an unverified expiration claim
// cannot be trusted, and an expired-but-genuine certificate must be
// distinguishable from a forged one.
//
// Three decode entry points (barcode image, transport text, raw signed
// bytes) funnel into one verify-and-parse routine, so no entry point
// can drift from the others' trust logic.
package certificate
