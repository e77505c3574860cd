// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore stores an issuer credential — signing key plus
// certificate — on disk and loads it back.
//
// The on-disk form is a PEM bundle (PKCS#8 private key followed by the
// certificate). With a passphrase set, the bundle is sealed with age
// using an scrypt recipient and written armored; without one it is
// written as plaintext PEM, which is acceptable only for development
// keys. Loading detects the armor header, so a caller does not need to
// know which form it is opening.
package keystore
