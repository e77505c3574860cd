// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package cwt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/hcert-foundation/hcert/lib/codec"
)

// Standard claim keys assigned by RFC 8392 §3.1.
var (
	KeyIssuer     = IntKey(1)
	KeyExpiration = IntKey(4)
	KeyIssuedAt   = IntKey(6)
)

// ErrMalformed reports structurally invalid claims-token bytes: wrong
// top-level type, truncated input, trailing garbage, duplicate keys,
// or a claim key that is neither integer nor text.
var ErrMalformed = errors.New("cwt: malformed claims token")

// maxClaims caps the number of entries a decoded token may carry. The
// claim count comes from an attacker-controlled length field; a real
// certificate has well under a dozen claims.
const maxClaims = 1024

// Key is a claim key: either a small integer or a text string. Issuers
// may use either representation, so lookup supports both; IntKey(1)
// and TextKey("1") are distinct keys.
type Key struct {
	text  string
	n     int64
	isInt bool
}

// IntKey returns the integer claim key n.
func IntKey(n int64) Key { return Key{n: n, isInt: true} }

// TextKey returns the text claim key s.
func TextKey(s string) Key { return Key{text: s} }

// IsInt reports whether the key is an integer key.
func (k Key) IsInt() bool { return k.isInt }

// Int returns the integer value of an integer key, 0 for text keys.
func (k Key) Int() int64 { return k.n }

// Text returns the string value of a text key, "" for integer keys.
func (k Key) Text() string { return k.text }

// String renders the key for diagnostics: the bare integer, or the
// quoted text.
func (k Key) String() string {
	if k.isInt {
		return strconv.FormatInt(k.n, 10)
	}
	return strconv.Quote(k.text)
}

func (k Key) encode() (codec.RawMessage, error) {
	if k.isInt {
		return codec.Marshal(k.n)
	}
	return codec.Marshal(k.text)
}

type entry struct {
	key   Key
	value codec.RawMessage
}

// Claims is an immutable claims token: an ordered mapping of claim key
// to raw CBOR value. Build one with a Builder or decode one with
// Decode; there is no mutation after that.
type Claims struct {
	entries []entry
	index   map[Key]int
}

// Decode parses CBOR bytes into a Claims. The top level must be a
// single CBOR map with integer or text keys and no duplicates; unknown
// claims are preserved and retrievable by key. Structural problems
// fail with an error wrapping ErrMalformed that names the cause.
func Decode(data []byte) (*Claims, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	count, indefinite, rest, err := readMapHead(data)
	if err != nil {
		return nil, err
	}
	if !indefinite && count > maxClaims {
		return nil, fmt.Errorf("%w: %d claims exceeds limit of %d", ErrMalformed, count, maxClaims)
	}

	claims := &Claims{index: make(map[Key]int)}
	for i := uint64(0); ; i++ {
		if indefinite {
			if len(rest) == 0 {
				return nil, fmt.Errorf("%w: truncated map", ErrMalformed)
			}
			if rest[0] == 0xFF {
				rest = rest[1:]
				break
			}
			if i >= maxClaims {
				return nil, fmt.Errorf("%w: more than %d claims", ErrMalformed, maxClaims)
			}
		} else if i == count {
			break
		}

		var rawKey, rawValue codec.RawMessage
		if rest, err = codec.UnmarshalFirst(rest, &rawKey); err != nil {
			return nil, fmt.Errorf("%w: reading claim key: %v", ErrMalformed, err)
		}
		if rest, err = codec.UnmarshalFirst(rest, &rawValue); err != nil {
			return nil, fmt.Errorf("%w: reading claim value: %v", ErrMalformed, err)
		}

		key, err := decodeKey(rawKey)
		if err != nil {
			return nil, err
		}
		if _, dup := claims.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate claim key %s", ErrMalformed, key)
		}
		claims.index[key] = len(claims.entries)
		claims.entries = append(claims.entries, entry{key: key, value: rawValue})
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after claims map", ErrMalformed, len(rest))
	}
	return claims, nil
}

// readMapHead parses the CBOR map header and returns the entry count
// (or indefinite=true for an indefinite-length map) plus the bytes
// after the header.
func readMapHead(data []byte) (count uint64, indefinite bool, rest []byte, err error) {
	const majorMap = 5
	head := data[0]
	if head>>5 != majorMap {
		return 0, false, nil, fmt.Errorf("%w: top level is not a map (major type %d)", ErrMalformed, head>>5)
	}

	info := head & 0x1F
	rest = data[1:]
	switch {
	case info < 24:
		return uint64(info), false, rest, nil
	case info == 24, info == 25, info == 26, info == 27:
		width := 1 << (info - 24)
		if len(rest) < width {
			return 0, false, nil, fmt.Errorf("%w: truncated map header", ErrMalformed)
		}
		var buf [8]byte
		copy(buf[8-width:], rest[:width])
		return binary.BigEndian.Uint64(buf[:]), false, rest[width:], nil
	case info == 31:
		return 0, true, rest, nil
	default:
		return 0, false, nil, fmt.Errorf("%w: reserved map header %#x", ErrMalformed, head)
	}
}

func decodeKey(raw codec.RawMessage) (Key, error) {
	var value any
	if err := codec.Unmarshal(raw, &value); err != nil {
		return Key{}, fmt.Errorf("%w: claim key: %v", ErrMalformed, err)
	}
	switch v := value.(type) {
	case int64:
		return IntKey(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return Key{}, fmt.Errorf("%w: claim key %d out of range", ErrMalformed, v)
		}
		return IntKey(int64(v)), nil
	case string:
		return TextKey(v), nil
	default:
		return Key{}, fmt.Errorf("%w: claim key must be integer or text, got %T", ErrMalformed, value)
	}
}

// Encode serializes the claims as an RFC 8949 Core Deterministic CBOR
// map: definite length, entries sorted by the bytewise order of their
// encoded keys. The output is the exact byte sequence a signature is
// computed over.
func (c *Claims) Encode() ([]byte, error) {
	type pair struct {
		key   codec.RawMessage
		value codec.RawMessage
	}
	pairs := make([]pair, 0, len(c.entries))
	for _, e := range c.entries {
		encodedKey, err := e.key.encode()
		if err != nil {
			return nil, fmt.Errorf("encoding claim key %s: %w", e.key, err)
		}
		pairs = append(pairs, pair{key: encodedKey, value: e.value})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].key, pairs[j].key) < 0
	})

	var out bytes.Buffer
	out.Write(appendMapHead(nil, uint64(len(pairs))))
	for _, p := range pairs {
		out.Write(p.key)
		out.Write(p.value)
	}
	return out.Bytes(), nil
}

// appendMapHead appends the definite-length CBOR map header for count
// entries, using the smallest-width encoding the count fits in.
func appendMapHead(dst []byte, count uint64) []byte {
	const majorMap = 5 << 5
	switch {
	case count < 24:
		return append(dst, majorMap|byte(count))
	case count <= math.MaxUint8:
		return append(dst, majorMap|24, byte(count))
	case count <= math.MaxUint16:
		return binary.BigEndian.AppendUint16(append(dst, majorMap|25), uint16(count))
	case count <= math.MaxUint32:
		return binary.BigEndian.AppendUint32(append(dst, majorMap|26), uint32(count))
	default:
		return binary.BigEndian.AppendUint64(append(dst, majorMap|27), count)
	}
}

// Len returns the number of claims.
func (c *Claims) Len() int { return len(c.entries) }

// Keys returns the claim keys in model order: insertion order for a
// built token, wire order for a decoded one.
func (c *Claims) Keys() []Key {
	keys := make([]Key, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.key
	}
	return keys
}

// RawClaim returns the raw CBOR value of the claim, or ok=false if the
// key is absent.
func (c *Claims) RawClaim(key Key) (codec.RawMessage, bool) {
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return c.entries[i].value, true
}

// StringClaim returns a text-valued claim. Absence is (_, false, nil);
// a present claim of another CBOR type is an error.
func (c *Claims) StringClaim(key Key) (string, bool, error) {
	raw, ok := c.RawClaim(key)
	if !ok {
		return "", false, nil
	}
	var s string
	if err := codec.Unmarshal(raw, &s); err != nil {
		return "", true, fmt.Errorf("claim %s is not text: %w", key, err)
	}
	return s, true, nil
}

// IntClaim returns an integer-valued claim.
func (c *Claims) IntClaim(key Key) (int64, bool, error) {
	raw, ok := c.RawClaim(key)
	if !ok {
		return 0, false, nil
	}
	var n int64
	if err := codec.Unmarshal(raw, &n); err != nil {
		return 0, true, fmt.Errorf("claim %s is not an integer: %w", key, err)
	}
	return n, true, nil
}

// BytesClaim returns a byte-string-valued claim.
func (c *Claims) BytesClaim(key Key) ([]byte, bool, error) {
	raw, ok := c.RawClaim(key)
	if !ok {
		return nil, false, nil
	}
	var b []byte
	if err := codec.Unmarshal(raw, &b); err != nil {
		return nil, true, fmt.Errorf("claim %s is not a byte string: %w", key, err)
	}
	return b, true, nil
}

// TimeClaim returns a NumericDate-valued claim as a UTC instant,
// accepting the tagged encodings parseNumericDate tolerates.
func (c *Claims) TimeClaim(key Key) (time.Time, bool, error) {
	raw, ok := c.RawClaim(key)
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := parseNumericDate(raw)
	if err != nil {
		return time.Time{}, true, err
	}
	return t, true, nil
}

// Issuer returns the standard issuer claim (key 1).
func (c *Claims) Issuer() (string, bool, error) { return c.StringClaim(KeyIssuer) }

// IssuedAt returns the standard issued-at claim (key 6).
func (c *Claims) IssuedAt() (time.Time, bool, error) { return c.TimeClaim(KeyIssuedAt) }

// Expiration returns the standard expiration claim (key 4).
func (c *Claims) Expiration() (time.Time, bool, error) { return c.TimeClaim(KeyExpiration) }
