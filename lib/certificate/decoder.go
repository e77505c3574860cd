// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package certificate

import (
	"fmt"
	"time"

	"github.com/hcert-foundation/hcert/lib/barcode"
	"github.com/hcert-foundation/hcert/lib/clock"
	"github.com/hcert-foundation/hcert/lib/codec"
	"github.com/hcert-foundation/hcert/lib/cose"
	"github.com/hcert-foundation/hcert/lib/cwt"
	"github.com/hcert-foundation/hcert/lib/transport"
	"github.com/hcert-foundation/hcert/lib/truststore"
)

// Decoder verifies certificates against a trust-anchor population.
type Decoder struct {
	// Anchors is the issuer population the verifier accepts.
	Anchors []truststore.Anchor

	// Payload is the domain-schema collaborator.
	Payload PayloadCodec

	// Clock supplies "now" for anchor-window and expiration checks.
	// Nil means the system clock.
	Clock clock.Clock

	// AllowExpired lets audit tooling read a genuine but stale
	// certificate. The result still carries Expired=true and the
	// expiry time; signature verification is never relaxed.
	AllowExpired bool
}

// Decoded is the verified result. Exactly one of (Decoded, error)
// comes back from a decode — never a partial payload next to an
// error.
type Decoded struct {
	// Payload is the schema-validated payload record.
	Payload any

	// Claims is the full decoded claims token, for callers that need
	// non-standard claims.
	Claims *cwt.Claims

	Issuer     string
	IssuedAt   time.Time
	Expiration time.Time

	// Anchor is the trust anchor that validated the signature.
	Anchor truststore.Anchor

	// Expired is true only when AllowExpired permitted a stale
	// certificate through.
	Expired bool
}

// Decode scans a barcode image and verifies its content.
func (d *Decoder) Decode(imageData []byte) (*Decoded, error) {
	text, err := barcode.Scan(imageData)
	if err != nil {
		return nil, err
	}
	return d.DecodeText(text)
}

// DecodeText verifies a transport text form (HC1:...).
func (d *Decoder) DecodeText(text string) (*Decoded, error) {
	signed, err := transport.Decode(text)
	if err != nil {
		return nil, err
	}
	return d.DecodeSigned(signed)
}

// DecodeSigned verifies raw signed-token bytes, bypassing the optical
// transport. Verification and expiration logic are identical to the
// image path: all entry points funnel here.
func (d *Decoder) DecodeSigned(signed []byte) (*Decoded, error) {
	if d.Payload == nil {
		return nil, ErrNoPayloadCodec
	}
	now := d.now()

	message, err := cose.DecodeMessage(signed)
	if err != nil {
		return nil, err
	}

	// Signature first. Nothing in the claims — expiration included —
	// is meaningful until a trust anchor vouches for the bytes.
	anchor, err := cose.Verify(message, d.Anchors, now)
	if err != nil {
		return nil, err
	}

	claims, err := cwt.Decode(message.Payload)
	if err != nil {
		return nil, err
	}

	payload, err := d.extractPayload(claims)
	if err != nil {
		return nil, err
	}

	issuer, _, err := claims.Issuer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	issuedAt, _, err := claims.IssuedAt()
	if err != nil {
		return nil, err
	}

	// Expiration last, and only after the signature has vouched for
	// it. A token without one cannot prove it is still valid.
	expiration, present, err := claims.Expiration()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("%w: no expiration claim", ErrMalformedToken)
	}
	expired := !expiration.After(now)
	if expired && !d.AllowExpired {
		return nil, fmt.Errorf("%w: at %s", ErrExpired, expiration.Format(time.RFC3339))
	}

	return &Decoded{
		Payload:    payload,
		Claims:     claims,
		Issuer:     issuer,
		IssuedAt:   issuedAt,
		Expiration: expiration,
		Anchor:     anchor,
		Expired:    expired,
	}, nil
}

// extractPayload unwraps the health-certificate container claim and
// hands its payload entry to the schema collaborator.
func (d *Decoder) extractPayload(claims *cwt.Claims) (any, error) {
	raw, ok := claims.RawClaim(healthClaimKey)
	if !ok {
		return nil, fmt.Errorf("%w: no health certificate claim", ErrMalformedToken)
	}
	var container map[int64]codec.RawMessage
	if err := codec.Unmarshal(raw, &container); err != nil {
		return nil, fmt.Errorf("%w: container claim: %v", ErrMalformedToken, err)
	}
	payloadBytes, ok := container[containerPayloadKey]
	if !ok {
		return nil, fmt.Errorf("%w: container has no payload entry", ErrMalformedToken)
	}
	payload, err := d.Payload.Unmarshal(payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return payload, nil
}

func (d *Decoder) now() time.Time {
	if d.Clock != nil {
		return d.Clock.Now()
	}
	return clock.Real().Now()
}
