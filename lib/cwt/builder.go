// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package cwt

import (
	"fmt"
	"time"

	"github.com/hcert-foundation/hcert/lib/codec"
)

// Builder accumulates claims and produces an immutable Claims. Calls
// chain; a later call with the same key overwrites the earlier value
// (the entry keeps its original position). Encoding failures are
// remembered and reported by Build, so call sites stay linear.
type Builder struct {
	entries []entry
	index   map[Key]int
	err     error
}

// NewBuilder returns a fresh, empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[Key]int)}
}

// Issuer sets the standard issuer claim (key 1).
func (b *Builder) Issuer(issuer string) *Builder {
	return b.Claim(KeyIssuer, issuer)
}

// IssuedAt sets the standard issued-at claim (key 6). Sub-second
// precision is dropped.
func (b *Builder) IssuedAt(t time.Time) *Builder {
	return b.timeClaim(KeyIssuedAt, t)
}

// Expiration sets the standard expiration claim (key 4). Sub-second
// precision is dropped.
func (b *Builder) Expiration(t time.Time) *Builder {
	return b.timeClaim(KeyExpiration, t)
}

// Claim sets an arbitrary claim, encoding value with the deterministic
// CBOR encoder.
func (b *Builder) Claim(key Key, value any) *Builder {
	raw, err := codec.Marshal(value)
	if err != nil {
		return b.fail(fmt.Errorf("encoding claim %s: %w", key, err))
	}
	return b.RawClaim(key, raw)
}

// RawClaim sets a claim from an already-encoded CBOR value.
func (b *Builder) RawClaim(key Key, raw codec.RawMessage) *Builder {
	if b.err != nil {
		return b
	}
	if i, ok := b.index[key]; ok {
		b.entries[i].value = raw
		return b
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, entry{key: key, value: raw})
	return b
}

func (b *Builder) timeClaim(key Key, t time.Time) *Builder {
	raw, err := numericDate(t)
	if err != nil {
		return b.fail(fmt.Errorf("encoding claim %s: %w", key, err))
	}
	return b.RawClaim(key, raw)
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Build freezes the accumulated claims. No semantic validation happens
// here: an empty token, or one without an issuer, is legal at this
// layer. Expiry policy belongs to the certificate orchestrator.
func (b *Builder) Build() (*Claims, error) {
	if b.err != nil {
		return nil, b.err
	}
	claims := &Claims{
		entries: make([]entry, len(b.entries)),
		index:   make(map[Key]int, len(b.index)),
	}
	copy(claims.entries, b.entries)
	for k, i := range b.index {
		claims.index[k] = i
	}
	return claims, nil
}
