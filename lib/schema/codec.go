// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"

	"github.com/hcert-foundation/hcert/lib/codec"
)

// Codec converts Certificate records to and from their CBOR form,
// validating in both directions. It is the concrete payload-codec
// collaborator the certificate orchestrator is configured with.
type Codec struct{}

// Marshal validates payload and encodes it as deterministic CBOR.
// The payload must be a *Certificate or Certificate.
func (Codec) Marshal(payload any) ([]byte, error) {
	record, err := asCertificate(payload)
	if err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	data, err := codec.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return data, nil
}

// Unmarshal decodes CBOR bytes into a *Certificate and validates the
// result. A structurally broken or non-conforming payload fails with
// an error wrapping ErrInvalid.
func (Codec) Unmarshal(data []byte) (any, error) {
	var record Certificate
	if err := codec.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return &record, nil
}

func asCertificate(payload any) (*Certificate, error) {
	switch p := payload.(type) {
	case *Certificate:
		return p, nil
	case Certificate:
		return &p, nil
	default:
		return nil, fmt.Errorf("%w: payload is %T, want *schema.Certificate", ErrInvalid, payload)
	}
}
