// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package certificate

import (
	"github.com/hcert-foundation/hcert/lib/cose"
	"github.com/hcert-foundation/hcert/lib/cwt"
	"github.com/hcert-foundation/hcert/lib/transport"
)

// Unverified is the parsed-but-unverified view of a token, for
// inspection tooling and for callers that need the binary claims form
// without full payload parsing. NOTHING in it is trustworthy: no
// signature has been checked.
type Unverified struct {
	// Signed is the raw COSE_Sign1 encoding.
	Signed []byte

	// ClaimsBytes is the encoded claims token (the signature's
	// payload), exactly as carried.
	ClaimsBytes []byte

	// Claims is the decoded claims map.
	Claims *cwt.Claims

	// Algorithm is the signature algorithm the protected header
	// declares.
	Algorithm cose.Algorithm

	// KID is the key identifier hint, nil when absent.
	KID []byte
}

// Inspect transport-decodes and parses a certificate without
// verifying it.
func Inspect(text string) (*Unverified, error) {
	signed, err := transport.Decode(text)
	if err != nil {
		return nil, err
	}
	return InspectSigned(signed)
}

// InspectSigned parses raw signed-token bytes without verifying them.
func InspectSigned(signed []byte) (*Unverified, error) {
	message, err := cose.DecodeMessage(signed)
	if err != nil {
		return nil, err
	}
	algorithm, err := message.Algorithm()
	if err != nil {
		return nil, err
	}
	kid, err := message.KeyID()
	if err != nil {
		return nil, err
	}
	claims, err := cwt.Decode(message.Payload)
	if err != nil {
		return nil, err
	}

	return &Unverified{
		Signed:      signed,
		ClaimsBytes: message.Payload,
		Claims:      claims,
		Algorithm:   algorithm,
		KID:         kid,
	}, nil
}
