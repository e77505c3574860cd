// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package cose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"strconv"
)

// Algorithm is a COSE signature algorithm identifier (RFC 9053 §2).
type Algorithm int64

const (
	// AlgES256 is ECDSA over P-256 with SHA-256.
	AlgES256 Algorithm = -7
	// AlgES384 is ECDSA over P-384 with SHA-384.
	AlgES384 Algorithm = -35
	// AlgES512 is ECDSA over P-521 with SHA-512.
	AlgES512 Algorithm = -36
	// AlgPS256 is RSASSA-PSS with SHA-256.
	AlgPS256 Algorithm = -37
	// AlgRS256 is RSASSA-PKCS1-v1_5 with SHA-256. Verify-only: some
	// issuers in the field sign with it, but this module never does.
	AlgRS256 Algorithm = -257
)

// minRSABits is the smallest RSA modulus accepted for signing keys.
const minRSABits = 2048

// String returns the registered algorithm name.
func (a Algorithm) String() string {
	switch a {
	case AlgES256:
		return "ES256"
	case AlgES384:
		return "ES384"
	case AlgES512:
		return "ES512"
	case AlgPS256:
		return "PS256"
	case AlgRS256:
		return "RS256"
	default:
		return "Algorithm(" + strconv.FormatInt(int64(a), 10) + ")"
	}
}

// hash returns the digest function the algorithm signs over.
func (a Algorithm) hash() (crypto.Hash, error) {
	switch a {
	case AlgES256, AlgPS256, AlgRS256:
		return crypto.SHA256, nil
	case AlgES384:
		return crypto.SHA384, nil
	case AlgES512:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: algorithm %s", ErrUnsupportedKey, a)
	}
}

// curve returns the ECDSA curve for the ES algorithms, nil otherwise.
func (a Algorithm) curve() elliptic.Curve {
	switch a {
	case AlgES256:
		return elliptic.P256()
	case AlgES384:
		return elliptic.P384()
	case AlgES512:
		return elliptic.P521()
	default:
		return nil
	}
}

// algorithmForKey selects the signing algorithm from the key type.
// ECDSA keys map to the ES variant of their curve; RSA keys of
// sufficient size sign with PSS. Anything else is a configuration
// error, not a signing failure.
func algorithmForKey(key crypto.Signer) (Algorithm, error) {
	switch k := key.Public().(type) {
	case *ecdsa.PublicKey:
		switch k.Curve {
		case elliptic.P256():
			return AlgES256, nil
		case elliptic.P384():
			return AlgES384, nil
		case elliptic.P521():
			return AlgES512, nil
		default:
			return 0, fmt.Errorf("%w: ECDSA curve %s", ErrUnsupportedKey, k.Curve.Params().Name)
		}
	case *rsa.PublicKey:
		if bits := k.N.BitLen(); bits < minRSABits {
			return 0, fmt.Errorf("%w: RSA modulus %d bits, need at least %d", ErrUnsupportedKey, bits, minRSABits)
		}
		return AlgPS256, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedKey, key.Public())
	}
}

// keyMatchesAlgorithm reports whether a public key can even be a
// candidate for the given algorithm. A mismatched key is skipped
// during verification rather than producing a per-key error.
func keyMatchesAlgorithm(key crypto.PublicKey, algorithm Algorithm) bool {
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		return algorithm.curve() == k.Curve
	case *rsa.PublicKey:
		return algorithm == AlgPS256 || algorithm == AlgRS256
	default:
		return false
	}
}
