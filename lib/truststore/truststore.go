// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package truststore

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"
)

// ErrNotFound reports a kid with no matching anchor in the store.
var ErrNotFound = errors.New("truststore: anchor not found")

// kidLength is the truncated SHA-256 length used for key identifiers.
const kidLength = 8

// KeyID computes the key identifier for a certificate: the first 8
// bytes of the SHA-256 digest of its DER encoding. Both the signer
// (protected header kid) and the verifier (anchor lookup) use this
// rule, so the two sides agree without coordination.
func KeyID(certificate *x509.Certificate) []byte {
	digest := sha256.Sum256(certificate.Raw)
	return digest[:kidLength]
}

// Anchor is one trusted issuer: a certificate, its derived key
// identifier, and the window during which the verifier accepts it.
type Anchor struct {
	// KID is the 8-byte truncated certificate digest.
	KID []byte

	// Subject is a human-readable label, typically the certificate's
	// subject common name.
	Subject string

	// Certificate is the issuer's certificate. Its public key is the
	// verification key.
	Certificate *x509.Certificate

	// NotBefore and NotAfter bound when the anchor is usable. They
	// default to the certificate's own validity window.
	NotBefore time.Time
	NotAfter  time.Time
}

// NewAnchor builds an Anchor from a certificate, deriving the kid and
// validity window from the certificate itself.
func NewAnchor(certificate *x509.Certificate) Anchor {
	return Anchor{
		KID:         KeyID(certificate),
		Subject:     certificate.Subject.CommonName,
		Certificate: certificate,
		NotBefore:   certificate.NotBefore,
		NotAfter:    certificate.NotAfter,
	}
}

// PublicKey returns the anchor's verification key.
func (a Anchor) PublicKey() crypto.PublicKey {
	return a.Certificate.PublicKey
}

// ValidAt reports whether the anchor may be used at instant t.
func (a Anchor) ValidAt(t time.Time) bool {
	return !t.Before(a.NotBefore) && !t.After(a.NotAfter)
}

// Set is the verifier's anchor population. The zero value is an empty
// set ready for Add.
type Set struct {
	anchors []Anchor
}

// Len returns the number of anchors.
func (s *Set) Len() int { return len(s.anchors) }

// Anchors returns the anchors in store order. The returned slice is
// shared; callers must not mutate it.
func (s *Set) Anchors() []Anchor { return s.anchors }

// Add inserts an anchor, replacing any existing anchor with the same
// kid.
func (s *Set) Add(anchor Anchor) {
	for i := range s.anchors {
		if bytes.Equal(s.anchors[i].KID, anchor.KID) {
			s.anchors[i] = anchor
			return
		}
	}
	s.anchors = append(s.anchors, anchor)
}

// Remove deletes the anchor with the given kid. Returns ErrNotFound
// if no anchor matches.
func (s *Set) Remove(kid []byte) error {
	for i := range s.anchors {
		if bytes.Equal(s.anchors[i].KID, kid) {
			s.anchors = append(s.anchors[:i], s.anchors[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: kid %x", ErrNotFound, kid)
}

// Lookup returns the anchor with the given kid.
func (s *Set) Lookup(kid []byte) (Anchor, bool) {
	for _, anchor := range s.anchors {
		if bytes.Equal(anchor.KID, kid) {
			return anchor, true
		}
	}
	return Anchor{}, false
}

// anchorRecord is the on-disk form of one anchor.
type anchorRecord struct {
	KID         string `json:"kid"`
	Subject     string `json:"subject,omitempty"`
	Certificate string `json:"certificate"`
}

// document is the on-disk form of the store.
type document struct {
	Anchors []anchorRecord `json:"anchors"`
}

// Load reads a trust store document. The file may contain JSONC
// comments and trailing commas. Each anchor's certificate is parsed
// and its kid recomputed; a stored kid that disagrees with the
// certificate is an error rather than silently trusted.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trust store: %w", err)
	}
	return Parse(data)
}

// Parse decodes a trust store document from bytes.
func Parse(data []byte) (*Set, error) {
	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("parsing trust store: %w", err)
	}

	set := &Set{}
	for i, record := range doc.Anchors {
		der, err := base64.StdEncoding.DecodeString(record.Certificate)
		if err != nil {
			return nil, fmt.Errorf("anchor %d: decoding certificate: %w", i, err)
		}
		certificate, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("anchor %d: parsing certificate: %w", i, err)
		}

		anchor := NewAnchor(certificate)
		if record.Subject != "" {
			anchor.Subject = record.Subject
		}
		if record.KID != "" {
			storedKID, err := base64.StdEncoding.DecodeString(record.KID)
			if err != nil {
				return nil, fmt.Errorf("anchor %d: decoding kid: %w", i, err)
			}
			if !bytes.Equal(storedKID, anchor.KID) {
				return nil, fmt.Errorf("anchor %d: stored kid %x does not match certificate digest %x",
					i, storedKID, anchor.KID)
			}
		}
		set.Add(anchor)
	}
	return set, nil
}

// Save writes the store to path as plain JSON, 0600 since the file
// determines who the verifier trusts.
func (s *Set) Save(path string) error {
	doc := document{Anchors: make([]anchorRecord, 0, len(s.anchors))}
	for _, anchor := range s.anchors {
		doc.Anchors = append(doc.Anchors, anchorRecord{
			KID:         base64.StdEncoding.EncodeToString(anchor.KID),
			Subject:     anchor.Subject,
			Certificate: base64.StdEncoding.EncodeToString(anchor.Certificate.Raw),
		})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding trust store: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing trust store: %w", err)
	}
	return nil
}
