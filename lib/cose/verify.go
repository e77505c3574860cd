// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package cose

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"math/big"
	"time"

	"github.com/hcert-foundation/hcert/lib/truststore"
)

// Verify checks the message signature against a set of candidate
// trust anchors and returns the anchor that validated it.
//
// Anchors outside their validity window at instant `at`, and anchors
// whose key type cannot match the message's algorithm, are skipped as
// non-candidates. When the message carries a kid hint, anchors with
// that kid are tried first; the hint is an optimization only — a
// wrong or missing kid never prevents the full scan. On failure the
// returned error is the bare ErrSignature: it does not say which
// anchors were tried or why each one failed.
func Verify(message *Sign1Message, anchors []truststore.Anchor, at time.Time) (truststore.Anchor, error) {
	if len(anchors) == 0 {
		return truststore.Anchor{}, ErrNoTrustAnchors
	}

	algorithm, err := message.Algorithm()
	if err != nil {
		return truststore.Anchor{}, err
	}
	hint, err := message.KeyID()
	if err != nil {
		return truststore.Anchor{}, err
	}

	input, err := signatureInput(message.Protected, message.Payload)
	if err != nil {
		return truststore.Anchor{}, ErrSignature
	}
	hash, err := algorithm.hash()
	if err != nil {
		return truststore.Anchor{}, err
	}
	digestFn := hash.New()
	digestFn.Write(input)
	digest := digestFn.Sum(nil)

	candidates := orderCandidates(anchors, hint, algorithm, at)
	for _, anchor := range candidates {
		if verifyDigest(algorithm, anchor.PublicKey(), digest, message.Signature, hash) {
			return anchor, nil
		}
	}
	return truststore.Anchor{}, ErrSignature
}

// orderCandidates filters anchors down to usable candidates and moves
// kid-hint matches to the front, preserving relative order otherwise.
func orderCandidates(anchors []truststore.Anchor, hint []byte, algorithm Algorithm, at time.Time) []truststore.Anchor {
	var matched, rest []truststore.Anchor
	for _, anchor := range anchors {
		if !anchor.ValidAt(at) {
			continue
		}
		if !keyMatchesAlgorithm(anchor.PublicKey(), algorithm) {
			continue
		}
		if len(hint) > 0 && bytes.Equal(anchor.KID, hint) {
			matched = append(matched, anchor)
		} else {
			rest = append(rest, anchor)
		}
	}
	return append(matched, rest...)
}

func verifyDigest(algorithm Algorithm, key crypto.PublicKey, digest, signature []byte, hash crypto.Hash) bool {
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		size := (k.Curve.Params().BitSize + 7) / 8
		if len(signature) != 2*size {
			return false
		}
		r := new(big.Int).SetBytes(signature[:size])
		s := new(big.Int).SetBytes(signature[size:])
		return ecdsa.Verify(k, digest, r, s)
	case *rsa.PublicKey:
		switch algorithm {
		case AlgPS256:
			return rsa.VerifyPSS(k, hash, digest, signature, &rsa.PSSOptions{
				SaltLength: rsa.PSSSaltLengthEqualsHash,
			}) == nil
		case AlgRS256:
			return rsa.VerifyPKCS1v15(k, hash, digest, signature) == nil
		default:
			return false
		}
	default:
		return false
	}
}
