// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package certificate

import (
	"errors"
	"fmt"
	"time"

	"github.com/hcert-foundation/hcert/lib/barcode"
	"github.com/hcert-foundation/hcert/lib/clock"
	"github.com/hcert-foundation/hcert/lib/codec"
	"github.com/hcert-foundation/hcert/lib/cose"
	"github.com/hcert-foundation/hcert/lib/cwt"
	"github.com/hcert-foundation/hcert/lib/transport"
)

var (
	// ErrNoSigner means the encoder has no signing key configured.
	ErrNoSigner = errors.New("certificate: no signer configured")

	// ErrNoPayloadCodec means no payload schema collaborator was
	// supplied.
	ErrNoPayloadCodec = errors.New("certificate: no payload codec configured")

	// ErrExpired means the signature verified but the token's
	// expiration has passed: genuine but stale, not forged.
	ErrExpired = errors.New("certificate: expired")

	// ErrMalformedToken means the verified claims content is not a
	// health certificate: no container claim, wrong container shape,
	// or a missing expiration.
	ErrMalformedToken = errors.New("certificate: malformed claims content")
)

// healthClaimKey is the CWT claim carrying the health certificate
// container (the registered "hcert" claim, -260).
var healthClaimKey = cwt.IntKey(-260)

// containerPayloadKey is the key inside the container map under which
// the payload sits (1 = EU DCC v1).
const containerPayloadKey = 1

// PayloadCodec is the domain-schema collaborator: it owns the payload
// record's binary form and its validation.
type PayloadCodec interface {
	// Marshal validates and encodes a payload record.
	Marshal(payload any) ([]byte, error)
	// Unmarshal decodes and validates payload bytes.
	Unmarshal(data []byte) (any, error)
}

// Encoder issues certificates: payload in, signed barcode out.
type Encoder struct {
	// Signer signs the claims token.
	Signer *cose.Signer

	// Issuer is the value of the issuer claim, typically an ISO 3166
	// country code or an agency name.
	Issuer string

	// Payload is the domain-schema collaborator.
	Payload PayloadCodec

	// Clock supplies the issued-at instant. Nil means the system
	// clock.
	Clock clock.Clock

	// BarcodeSize is the raster edge length in pixels; zero selects
	// the barcode package default.
	BarcodeSize int

	// ExtraClaims are issuer-specific claims merged into the token.
	// The encoder's own standard claims win on key collision.
	ExtraClaims map[cwt.Key]any
}

// Issued is the result of encoding: the same certificate in every
// form a caller might hand on.
type Issued struct {
	// Text is the transport text form (HC1:...).
	Text string

	// Barcode is the rendered QR form, raster and vector.
	Barcode *barcode.Barcode

	// Signed is the raw COSE_Sign1 encoding, for callers that store
	// or transmit the token without the optical transport.
	Signed []byte

	// IssuedAt and Expiration echo the token's date claims, truncated
	// to whole seconds as encoded.
	IssuedAt   time.Time
	Expiration time.Time
}

// Encode validates payload, builds and signs the claims token, and
// renders the barcode. The token carries issuer, issued-at (now),
// expiration, and the payload under the health-certificate claim.
func (e *Encoder) Encode(payload any, expiration time.Time) (*Issued, error) {
	if e.Signer == nil {
		return nil, ErrNoSigner
	}
	if e.Payload == nil {
		return nil, ErrNoPayloadCodec
	}

	payloadBytes, err := e.Payload.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	now := e.now()
	builder := cwt.NewBuilder()
	for key, value := range e.ExtraClaims {
		builder.Claim(key, value)
	}
	claims, err := builder.
		Issuer(e.Issuer).
		IssuedAt(now).
		Expiration(expiration).
		Claim(healthClaimKey, map[int64]codec.RawMessage{containerPayloadKey: payloadBytes}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("building claims token: %w", err)
	}
	claimsBytes, err := claims.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding claims token: %w", err)
	}

	message, err := e.Signer.Sign(claimsBytes)
	if err != nil {
		return nil, fmt.Errorf("signing claims token: %w", err)
	}
	signed, err := message.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding signed token: %w", err)
	}

	text, err := transport.Encode(signed)
	if err != nil {
		return nil, fmt.Errorf("transport encoding: %w", err)
	}
	rendered, err := barcode.Render(text, e.BarcodeSize)
	if err != nil {
		return nil, fmt.Errorf("rendering barcode: %w", err)
	}

	return &Issued{
		Text:       text,
		Barcode:    rendered,
		Signed:     signed,
		IssuedAt:   now.Truncate(time.Second),
		Expiration: expiration.Truncate(time.Second),
	}, nil
}

func (e *Encoder) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now()
	}
	return clock.Real().Now()
}
