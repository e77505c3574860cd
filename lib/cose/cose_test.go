// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package cose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/hcert-foundation/hcert/lib/codec"
	"github.com/hcert-foundation/hcert/lib/truststore"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// selfSigned issues a self-signed certificate for the given key,
// valid for a year around testNow.
func selfSigned(t *testing.T, key crypto.Signer, name string) *x509.Certificate {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    testNow.Add(-time.Hour),
		NotAfter:     testNow.Add(365 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	certificate, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	return certificate
}

func newECAnchor(t *testing.T, curve elliptic.Curve, name string) (*ecdsa.PrivateKey, truststore.Anchor) {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key, truststore.NewAnchor(selfSigned(t, key, name))
}

func newRSAAnchor(t *testing.T, name string) (*rsa.PrivateKey, truststore.Anchor) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key, truststore.NewAnchor(selfSigned(t, key, name))
}

func TestSignVerifyRoundtrip(t *testing.T) {
	payload := []byte("encoded claims token")

	cases := []struct {
		name      string
		key       func(t *testing.T) (crypto.Signer, truststore.Anchor)
		algorithm Algorithm
	}{
		{"ES256", func(t *testing.T) (crypto.Signer, truststore.Anchor) {
			k, a := newECAnchor(t, elliptic.P256(), "ES256 issuer")
			return k, a
		}, AlgES256},
		{"ES384", func(t *testing.T) (crypto.Signer, truststore.Anchor) {
			k, a := newECAnchor(t, elliptic.P384(), "ES384 issuer")
			return k, a
		}, AlgES384},
		{"ES512", func(t *testing.T) (crypto.Signer, truststore.Anchor) {
			k, a := newECAnchor(t, elliptic.P521(), "ES512 issuer")
			return k, a
		}, AlgES512},
		{"PS256", func(t *testing.T) (crypto.Signer, truststore.Anchor) {
			k, a := newRSAAnchor(t, "PS256 issuer")
			return k, a
		}, AlgPS256},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			key, anchor := c.key(t)
			signer, err := NewSigner(key)
			if err != nil {
				t.Fatalf("NewSigner: %v", err)
			}
			if signer.Algorithm() != c.algorithm {
				t.Errorf("Algorithm = %s, want %s", signer.Algorithm(), c.algorithm)
			}

			message, err := signer.Sign(payload)
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}

			encoded, err := message.Encode()
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, err := DecodeMessage(encoded)
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}

			validated, err := Verify(decoded, []truststore.Anchor{anchor}, testNow)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if validated.Subject != anchor.Subject {
				t.Errorf("validated by %q, want %q", validated.Subject, anchor.Subject)
			}
		})
	}
}

func TestDecodeMessageAcceptsUntagged(t *testing.T) {
	key, anchor := newECAnchor(t, elliptic.P256(), "issuer")
	signer, err := NewSigner(key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	message, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	untagged, err := codec.Marshal(sign1Wire{
		Protected:   message.Protected,
		Unprotected: message.Unprotected,
		Payload:     message.Payload,
		Signature:   message.Signature,
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := DecodeMessage(untagged)
	if err != nil {
		t.Fatalf("DecodeMessage (untagged): %v", err)
	}
	if _, err := Verify(decoded, []truststore.Anchor{anchor}, testNow); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

// Flipping any payload or signature byte must fail verification for
// every candidate key, including the genuine signer's.
func TestVerifyTamperDetection(t *testing.T) {
	key, anchor := newECAnchor(t, elliptic.P256(), "issuer")
	_, otherAnchor := newECAnchor(t, elliptic.P256(), "bystander")
	anchors := []truststore.Anchor{otherAnchor, anchor}

	signer, err := NewSigner(key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	message, err := signer.Sign([]byte("the genuine claims bytes"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := Verify(message, anchors, testNow); err != nil {
		t.Fatalf("untampered message must verify: %v", err)
	}

	sections := map[string][]byte{
		"payload":   message.Payload,
		"signature": message.Signature,
	}
	for name, section := range sections {
		for i := range section {
			section[i] ^= 0x01
			_, err := Verify(message, anchors, testNow)
			section[i] ^= 0x01
			if !errors.Is(err, ErrSignature) {
				t.Fatalf("%s byte %d flipped: error = %v, want ErrSignature", name, i, err)
			}
		}
	}
}

func TestVerifyOpaqueFailure(t *testing.T) {
	key, _ := newECAnchor(t, elliptic.P256(), "issuer")
	_, strangerAnchor := newECAnchor(t, elliptic.P256(), "stranger")

	signer, err := NewSigner(key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	message, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = Verify(message, []truststore.Anchor{strangerAnchor}, testNow)
	if !errors.Is(err, ErrSignature) {
		t.Fatalf("error = %v, want ErrSignature", err)
	}
	// The opaque sentinel is the whole message: no anchor names, no
	// per-key detail.
	if err.Error() != ErrSignature.Error() {
		t.Errorf("failure leaks detail: %q", err)
	}
}

func TestVerifyKidHintOptimization(t *testing.T) {
	key, anchor := newECAnchor(t, elliptic.P256(), "issuer")
	_, decoy := newECAnchor(t, elliptic.P256(), "decoy")

	signer, err := NewSigner(key, WithKeyID(anchor.KID))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	message, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	kid, err := message.KeyID()
	if err != nil {
		t.Fatalf("KeyID: %v", err)
	}
	if len(kid) == 0 {
		t.Fatal("protected header carries no kid")
	}

	validated, err := Verify(message, []truststore.Anchor{decoy, anchor}, testNow)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if validated.Subject != "issuer" {
		t.Errorf("validated by %q, want issuer", validated.Subject)
	}
}

func TestVerifyWrongKidStillScansAll(t *testing.T) {
	key, anchor := newECAnchor(t, elliptic.P256(), "issuer")

	signer, err := NewSigner(key, WithKeyID([]byte("bogus-id")))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	message, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// The kid hint matches nothing, but the genuine anchor is still in
	// the candidate set and must validate.
	if _, err := Verify(message, []truststore.Anchor{anchor}, testNow); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyNoAnchors(t *testing.T) {
	key, _ := newECAnchor(t, elliptic.P256(), "issuer")
	signer, err := NewSigner(key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	message, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = Verify(message, nil, testNow)
	if !errors.Is(err, ErrNoTrustAnchors) {
		t.Errorf("error = %v, want ErrNoTrustAnchors", err)
	}
}

func TestVerifySkipsAnchorOutsideValidity(t *testing.T) {
	key, anchor := newECAnchor(t, elliptic.P256(), "issuer")
	signer, err := NewSigner(key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	message, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = Verify(message, []truststore.Anchor{anchor}, anchor.NotAfter.Add(time.Hour))
	if !errors.Is(err, ErrSignature) {
		t.Errorf("error = %v, want ErrSignature for out-of-window anchor", err)
	}
}

func TestVerifyRS256Compatibility(t *testing.T) {
	key, anchor := newRSAAnchor(t, "legacy issuer")

	// Hand-build an RS256 message: this module never signs with
	// PKCS#1 v1.5, but must verify tokens from issuers that do.
	protected, err := codec.Marshal(map[int64]any{labelAlgorithm: int64(AlgRS256)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	payload := []byte("legacy payload")
	input, err := signatureInput(protected, payload)
	if err != nil {
		t.Fatalf("signatureInput: %v", err)
	}
	digest := sha256Sum(input)
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest)
	if err != nil {
		t.Fatalf("SignPKCS1v15: %v", err)
	}

	message := &Sign1Message{
		Protected:   protected,
		Unprotected: emptyMap,
		Payload:     payload,
		Signature:   signature,
	}
	if _, err := Verify(message, []truststore.Anchor{anchor}, testNow); err != nil {
		t.Errorf("Verify RS256: %v", err)
	}
}

func sha256Sum(data []byte) []byte {
	h := crypto.SHA256.New()
	h.Write(data)
	return h.Sum(nil)
}

func TestNewSignerConfigurationErrors(t *testing.T) {
	smallRSA, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	cases := []struct {
		name string
		key  crypto.Signer
	}{
		{"nil key", nil},
		{"undersized RSA", smallRSA},
		{"unsupported key type", edKey},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewSigner(c.key)
			if !errors.Is(err, ErrUnsupportedKey) {
				t.Errorf("error = %v, want ErrUnsupportedKey", err)
			}
		})
	}
}

func TestDecodeMessageMalformed(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not cbor", []byte{0xFF, 0x00}},
		{"wrong tuple type", []byte{0x62, 'h', 'i'}},
		{"no algorithm", mustEncodeWire(t, sign1Wire{
			Protected:   []byte{0xA0},
			Unprotected: emptyMap,
			Payload:     []byte("p"),
			Signature:   []byte("s"),
		})},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeMessage(c.data)
			if !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("error = %v, want ErrMalformedMessage", err)
			}
		})
	}
}

func mustEncodeWire(t *testing.T, wire sign1Wire) []byte {
	t.Helper()
	data, err := codec.Marshal(wire)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}
