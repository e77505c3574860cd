// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package cose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/hcert-foundation/hcert/lib/codec"
)

// Sentinel errors. ErrSignature is deliberately opaque: a failed
// verification must not reveal which candidate keys were tried or why
// each one rejected the signature.
var (
	ErrSignature        = errors.New("cose: signature verification failed")
	ErrMalformedMessage = errors.New("cose: malformed signed message")
	ErrUnsupportedKey   = errors.New("cose: unsupported key")
	ErrNoTrustAnchors   = errors.New("cose: no trust anchors configured")
)

// Protected header labels (RFC 9052 §3.1).
const (
	labelAlgorithm = 1
	labelKeyID     = 4
)

// sign1Tag is the CBOR tag wrapping a COSE_Sign1 structure.
const sign1Tag = 18

// sign1TagPrefix is the encoded head byte of tag 18 (major type 6,
// value 18).
const sign1TagPrefix = 0xD2

// Sign1Message is a COSE_Sign1 structure: the claims-token payload
// with its detached signature and the serialized protected header the
// signature binds. Derived once by Sign or DecodeMessage and never
// mutated.
type Sign1Message struct {
	// Protected is the serialized protected header map. It is kept in
	// wire form because the signature covers these exact bytes.
	Protected []byte

	// Unprotected is the raw unprotected header map. Not covered by
	// the signature; nothing security-relevant may be read from it.
	Unprotected codec.RawMessage

	// Payload is the encoded claims token.
	Payload []byte

	// Signature is the detached signature over the Sig_structure.
	Signature []byte
}

// sign1Wire is the 4-tuple wire form.
type sign1Wire struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected codec.RawMessage
	Payload     []byte
	Signature   []byte
}

// emptyMap is the encoding of {}, used for the unprotected header of
// freshly signed messages.
var emptyMap = codec.RawMessage{0xA0}

// protectedHeader is the decoded form of the protected header map.
type protectedHeader struct {
	Algorithm Algorithm `cbor:"1,keyasint"`
	KeyID     []byte    `cbor:"4,keyasint"`
}

// Algorithm returns the signature algorithm from the protected header.
func (m *Sign1Message) Algorithm() (Algorithm, error) {
	header, err := m.decodeProtected()
	if err != nil {
		return 0, err
	}
	if header.Algorithm == 0 {
		return 0, fmt.Errorf("%w: protected header has no algorithm", ErrMalformedMessage)
	}
	return header.Algorithm, nil
}

// KeyID returns the signer's key identifier hint, nil when absent.
func (m *Sign1Message) KeyID() ([]byte, error) {
	header, err := m.decodeProtected()
	if err != nil {
		return nil, err
	}
	return header.KeyID, nil
}

func (m *Sign1Message) decodeProtected() (protectedHeader, error) {
	var header protectedHeader
	if len(m.Protected) == 0 {
		return header, fmt.Errorf("%w: empty protected header", ErrMalformedMessage)
	}
	if err := codec.Unmarshal(m.Protected, &header); err != nil {
		return header, fmt.Errorf("%w: protected header: %v", ErrMalformedMessage, err)
	}
	return header, nil
}

// Encode serializes the message as a tag 18 COSE_Sign1 item.
func (m *Sign1Message) Encode() ([]byte, error) {
	unprotected := m.Unprotected
	if len(unprotected) == 0 {
		unprotected = emptyMap
	}
	return codec.Marshal(codec.Tag{
		Number: sign1Tag,
		Content: sign1Wire{
			Protected:   m.Protected,
			Unprotected: unprotected,
			Payload:     m.Payload,
			Signature:   m.Signature,
		},
	})
}

// DecodeMessage parses COSE_Sign1 bytes, with or without the tag 18
// wrapping (RFC 8392 permits both).
func DecodeMessage(data []byte) (*Sign1Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedMessage)
	}
	if data[0] == sign1TagPrefix {
		var tagged codec.RawTag
		if err := codec.Unmarshal(data, &tagged); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		data = tagged.Content
	}

	var wire sign1Wire
	if err := codec.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	message := &Sign1Message{
		Protected:   wire.Protected,
		Unprotected: wire.Unprotected,
		Payload:     wire.Payload,
		Signature:   wire.Signature,
	}
	// Surface a bad or algorithm-less protected header at decode time
	// rather than from whichever accessor happens to run first.
	if _, err := message.Algorithm(); err != nil {
		return nil, err
	}
	return message, nil
}

// sigStructure is the Sig_structure the signature is computed over
// (RFC 9052 §4.4). ExternalAAD is always the empty byte string here.
type sigStructure struct {
	_           struct{} `cbor:",toarray"`
	Context     string
	Protected   []byte
	ExternalAAD []byte
	Payload     []byte
}

// signatureInput returns the deterministic encoding of the
// Sig_structure for the given protected header and payload.
func signatureInput(protected, payload []byte) ([]byte, error) {
	if payload == nil {
		payload = []byte{}
	}
	return codec.Marshal(sigStructure{
		Context:     "Signature1",
		Protected:   protected,
		ExternalAAD: []byte{},
		Payload:     payload,
	})
}

// Signer signs claims-token payloads with a fixed key and the
// algorithm derived from it. Safe for concurrent use: the key is
// treated as read-only.
type Signer struct {
	key       crypto.Signer
	algorithm Algorithm
	kid       []byte
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithKeyID sets the key identifier carried in the protected header,
// giving verifiers a lookup hint.
func WithKeyID(kid []byte) SignerOption {
	return func(s *Signer) {
		s.kid = append([]byte(nil), kid...)
	}
}

// NewSigner wraps a private key. The algorithm is selected from the
// key type; unsupported key types or undersized RSA keys fail here,
// at configuration time, not at first Sign.
func NewSigner(key crypto.Signer, options ...SignerOption) (*Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", ErrUnsupportedKey)
	}
	algorithm, err := algorithmForKey(key)
	if err != nil {
		return nil, err
	}
	signer := &Signer{key: key, algorithm: algorithm}
	for _, option := range options {
		option(signer)
	}
	return signer, nil
}

// Algorithm returns the algorithm the signer was configured with.
func (s *Signer) Algorithm() Algorithm { return s.algorithm }

// KeyID returns the configured key identifier, nil when unset.
func (s *Signer) KeyID() []byte { return s.kid }

// Sign produces a COSE_Sign1 message over payload. Pure apart from
// the randomness ECDSA and PSS signatures require.
func (s *Signer) Sign(payload []byte) (*Sign1Message, error) {
	protected, err := s.encodeProtected()
	if err != nil {
		return nil, err
	}
	input, err := signatureInput(protected, payload)
	if err != nil {
		return nil, fmt.Errorf("encoding signature input: %w", err)
	}

	hash, err := s.algorithm.hash()
	if err != nil {
		return nil, err
	}
	digestFn := hash.New()
	digestFn.Write(input)
	digest := digestFn.Sum(nil)

	signature, err := s.signDigest(digest, hash)
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}

	return &Sign1Message{
		Protected:   protected,
		Unprotected: emptyMap,
		Payload:     payload,
		Signature:   signature,
	}, nil
}

func (s *Signer) encodeProtected() ([]byte, error) {
	header := map[int64]any{labelAlgorithm: int64(s.algorithm)}
	if len(s.kid) > 0 {
		header[labelKeyID] = s.kid
	}
	return codec.Marshal(header)
}

func (s *Signer) signDigest(digest []byte, hash crypto.Hash) ([]byte, error) {
	switch key := s.key.(type) {
	case *ecdsa.PrivateKey:
		r, sVal, err := ecdsa.Sign(rand.Reader, key, digest)
		if err != nil {
			return nil, err
		}
		// COSE ECDSA signatures are raw r||s, each padded to the
		// curve byte size (RFC 9053 §2.1), not ASN.1 DER.
		size := (key.Curve.Params().BitSize + 7) / 8
		signature := make([]byte, 2*size)
		r.FillBytes(signature[:size])
		sVal.FillBytes(signature[size:])
		return signature, nil
	case *rsa.PrivateKey:
		return rsa.SignPSS(rand.Reader, key, hash, digest, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
	default:
		// crypto.Signer implementations other than the stdlib key
		// types (HSM-backed keys) go through the generic interface.
		return s.key.Sign(rand.Reader, digest, hash)
	}
}
