// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package certificate

import (
	"errors"
	"testing"
	"time"

	"github.com/hcert-foundation/hcert/lib/clock"
	"github.com/hcert-foundation/hcert/lib/codec"
	"github.com/hcert-foundation/hcert/lib/cose"
	"github.com/hcert-foundation/hcert/lib/cwt"
	"github.com/hcert-foundation/hcert/lib/schema"
	"github.com/hcert-foundation/hcert/lib/testutil"
	"github.com/hcert-foundation/hcert/lib/transport"
	"github.com/hcert-foundation/hcert/lib/truststore"
)

var issueTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// issue encodes the standard test payload at issueTime with the given
// validity, returning the artifact and the issuer.
func issue(t *testing.T, validity time.Duration) (*Issued, *testutil.Issuer) {
	t.Helper()
	issuer := testutil.NewIssuer(t, "Swedish eHealth Agency")
	encoder := &Encoder{
		Signer:      issuer.Signer,
		Issuer:      "Kalle",
		Payload:     schema.Codec{},
		Clock:       clock.Fake(issueTime),
		ExtraClaims: map[cwt.Key]any{cwt.IntKey(99): "value"},
	}
	issued, err := encoder.Encode(testutil.VaccinationPayload(), issueTime.Add(validity))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return issued, issuer
}

func decoderFor(issuer *testutil.Issuer, at time.Time) *Decoder {
	return &Decoder{
		Anchors: []truststore.Anchor{issuer.Anchor},
		Payload: schema.Codec{},
		Clock:   clock.Fake(at),
	}
}

func TestEndToEnd(t *testing.T) {
	issued, issuer := issue(t, 30*24*time.Hour)

	decoded, err := decoderFor(issuer, issueTime.Add(24*time.Hour)).DecodeText(issued.Text)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}

	if decoded.Issuer != "Kalle" {
		t.Errorf("issuer = %q, want Kalle", decoded.Issuer)
	}
	extra, ok, err := decoded.Claims.StringClaim(cwt.IntKey(99))
	if err != nil || !ok || extra != "value" {
		t.Errorf("claim 99 = (%q, %v, %v), want value", extra, ok, err)
	}

	record, ok := decoded.Payload.(*schema.Certificate)
	if !ok {
		t.Fatalf("payload type = %T", decoded.Payload)
	}
	if record.Name.StandardizedSurname != "LINDQVIST" {
		t.Errorf("payload surname = %q", record.Name.StandardizedSurname)
	}
	if decoded.Expired {
		t.Error("fresh certificate reported expired")
	}
	if !decoded.IssuedAt.Equal(issueTime) {
		t.Errorf("issuedAt = %v, want %v", decoded.IssuedAt, issueTime)
	}
	if want := issueTime.Add(30 * 24 * time.Hour); !decoded.Expiration.Equal(want) {
		t.Errorf("expiration = %v, want %v", decoded.Expiration, want)
	}
	if decoded.Anchor.Subject != "Swedish eHealth Agency" {
		t.Errorf("validating anchor = %q", decoded.Anchor.Subject)
	}
}

// Decoding the same artifact 31 days later must fail with the expired
// error, which is distinct from a signature failure.
func TestEndToEndExpiry(t *testing.T) {
	issued, issuer := issue(t, 30*24*time.Hour)

	_, err := decoderFor(issuer, issueTime.Add(31*24*time.Hour)).DecodeText(issued.Text)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("error = %v, want ErrExpired", err)
	}
	if errors.Is(err, cose.ErrSignature) {
		t.Error("expired must not be conflated with a signature failure")
	}
}

// Signature validity and expiration straddle the expiration instant
// by one second in each direction.
func TestExpirationOrdering(t *testing.T) {
	issued, issuer := issue(t, time.Hour)
	expiration := issueTime.Add(time.Hour)

	if _, err := decoderFor(issuer, expiration.Add(-time.Second)).DecodeText(issued.Text); err != nil {
		t.Errorf("one second before expiration: %v", err)
	}
	_, err := decoderFor(issuer, expiration.Add(time.Second)).DecodeText(issued.Text)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("one second after expiration: error = %v, want ErrExpired", err)
	}
}

// An expired token signed by an unknown key must report the signature
// failure, not the expiration: an unverified expiration claim is
// meaningless.
func TestSignatureCheckedBeforeExpiration(t *testing.T) {
	issued, _ := issue(t, time.Hour)
	stranger := testutil.NewIssuer(t, "Unknown Issuer")

	_, err := decoderFor(stranger, issueTime.Add(48*time.Hour)).DecodeText(issued.Text)
	if !errors.Is(err, cose.ErrSignature) {
		t.Fatalf("error = %v, want ErrSignature", err)
	}
}

func TestAllowExpired(t *testing.T) {
	issued, issuer := issue(t, time.Hour)

	decoder := decoderFor(issuer, issueTime.Add(48*time.Hour))
	decoder.AllowExpired = true

	decoded, err := decoder.DecodeText(issued.Text)
	if err != nil {
		t.Fatalf("DecodeText with AllowExpired: %v", err)
	}
	if !decoded.Expired {
		t.Error("Expired flag not set on stale certificate")
	}
	if want := issueTime.Add(time.Hour); !decoded.Expiration.Equal(want) {
		t.Errorf("expiration = %v, want %v", decoded.Expiration, want)
	}
}

// All three entry points share one verification path and must agree.
func TestDecodeEntryPointsAgree(t *testing.T) {
	issued, issuer := issue(t, 30*24*time.Hour)
	decoder := decoderFor(issuer, issueTime.Add(time.Hour))

	fromText, err := decoder.DecodeText(issued.Text)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	fromSigned, err := decoder.DecodeSigned(issued.Signed)
	if err != nil {
		t.Fatalf("DecodeSigned: %v", err)
	}
	fromImage, err := decoder.Decode(issued.Barcode.PNG)
	if err != nil {
		t.Fatalf("Decode (image): %v", err)
	}

	for name, decoded := range map[string]*Decoded{
		"signed bytes": fromSigned,
		"image":        fromImage,
	} {
		if decoded.Issuer != fromText.Issuer {
			t.Errorf("%s issuer = %q, text path %q", name, decoded.Issuer, fromText.Issuer)
		}
		if !decoded.Expiration.Equal(fromText.Expiration) {
			t.Errorf("%s expiration = %v, text path %v", name, decoded.Expiration, fromText.Expiration)
		}
	}
}

func TestDecodeTamperedText(t *testing.T) {
	issued, issuer := issue(t, 30*24*time.Hour)
	decoder := decoderFor(issuer, issueTime.Add(time.Hour))

	// Swap two distinct characters in the base45 body. The damage
	// surfaces at whichever layer notices first (decompression or
	// signature) — never as a valid certificate.
	body := []byte(issued.Text)
	for i := len(transport.Prefix); i < len(body)-1; i++ {
		if body[i] != body[i+1] {
			body[i], body[i+1] = body[i+1], body[i]
			break
		}
	}
	if _, err := decoder.DecodeText(string(body)); err == nil {
		t.Fatal("tampered certificate decoded successfully")
	}
}

func TestDecodeForeignText(t *testing.T) {
	_, issuer := issue(t, time.Hour)
	decoder := decoderFor(issuer, issueTime)

	_, err := decoder.DecodeText("LT1:NOT OUR SCHEME")
	if !errors.Is(err, transport.ErrPrefix) {
		t.Errorf("error = %v, want transport.ErrPrefix", err)
	}
}

func TestDecodeRejectsNonCertificateToken(t *testing.T) {
	issuer := testutil.NewIssuer(t, "Issuer")
	decoder := decoderFor(issuer, issueTime)

	sign := func(t *testing.T, builder *cwt.Builder) []byte {
		t.Helper()
		claims, err := builder.Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		claimsBytes, err := claims.Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		message, err := issuer.Signer.Sign(claimsBytes)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		signed, err := message.Encode()
		if err != nil {
			t.Fatalf("Encode message: %v", err)
		}
		return signed
	}

	t.Run("no health claim", func(t *testing.T) {
		signed := sign(t, cwt.NewBuilder().
			Issuer("SE").
			Expiration(issueTime.Add(time.Hour)))
		if _, err := decoder.DecodeSigned(signed); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("error = %v, want ErrMalformedToken", err)
		}
	})

	t.Run("no expiration", func(t *testing.T) {
		payloadBytes, err := (schema.Codec{}).Marshal(testutil.VaccinationPayload())
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		signed := sign(t, cwt.NewBuilder().
			Issuer("SE").
			Claim(cwt.IntKey(-260), map[int64]codec.RawMessage{1: payloadBytes}))
		if _, err := decoder.DecodeSigned(signed); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("error = %v, want ErrMalformedToken", err)
		}
	})

	t.Run("schema violation inside container", func(t *testing.T) {
		signed := sign(t, cwt.NewBuilder().
			Issuer("SE").
			Expiration(issueTime.Add(time.Hour)).
			Claim(cwt.IntKey(-260), map[int64]string{1: "not a payload"}))
		if _, err := decoder.DecodeSigned(signed); !errors.Is(err, schema.ErrInvalid) {
			t.Errorf("error = %v, want schema.ErrInvalid", err)
		}
	})
}

func TestEncoderConfigurationErrors(t *testing.T) {
	issuer := testutil.NewIssuer(t, "Issuer")

	noSigner := &Encoder{Payload: schema.Codec{}}
	if _, err := noSigner.Encode(testutil.VaccinationPayload(), issueTime); !errors.Is(err, ErrNoSigner) {
		t.Errorf("error = %v, want ErrNoSigner", err)
	}

	noCodec := &Encoder{Signer: issuer.Signer}
	if _, err := noCodec.Encode(testutil.VaccinationPayload(), issueTime); !errors.Is(err, ErrNoPayloadCodec) {
		t.Errorf("error = %v, want ErrNoPayloadCodec", err)
	}
}

func TestEncoderRejectsInvalidPayload(t *testing.T) {
	issuer := testutil.NewIssuer(t, "Issuer")
	encoder := &Encoder{
		Signer:  issuer.Signer,
		Issuer:  "SE",
		Payload: schema.Codec{},
		Clock:   clock.Fake(issueTime),
	}

	invalid := testutil.VaccinationPayload()
	invalid.Version = ""
	_, err := encoder.Encode(invalid, issueTime.Add(time.Hour))
	if !errors.Is(err, schema.ErrInvalid) {
		t.Errorf("error = %v, want schema.ErrInvalid", err)
	}
}

func TestInspect(t *testing.T) {
	// Inspect must work with zero trust anchors configured — it
	// verifies nothing.
	issued, _ := issue(t, 30*24*time.Hour)

	unverified, err := Inspect(issued.Text)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if unverified.Algorithm != cose.AlgES256 {
		t.Errorf("algorithm = %s, want ES256", unverified.Algorithm)
	}
	if len(unverified.KID) != 8 {
		t.Errorf("kid length = %d, want 8", len(unverified.KID))
	}
	issuerClaim, _, err := unverified.Claims.Issuer()
	if err != nil || issuerClaim != "Kalle" {
		t.Errorf("issuer = (%q, %v)", issuerClaim, err)
	}
	if len(unverified.ClaimsBytes) == 0 {
		t.Error("ClaimsBytes empty")
	}
}
