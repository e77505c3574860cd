// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package base45 implements the RFC 9285 base45 encoding used for the
// certificate's QR transport form.
//
// Base45 is not a generic base-N codec: two input bytes become exactly
// three output symbols and a trailing single byte becomes exactly two,
// with the base-45 digits emitted least significant first. QR
// alphanumeric mode packs two symbols into 11 bits, which is why the
// alphabet is this particular 45-character set and why the packing
// rule is fixed — a verifier built by someone else must reproduce the
// bytes exactly.
package base45

import (
	"errors"
	"fmt"
)

// alphabet is the RFC 9285 symbol table. Symbol order is normative:
// the value of a symbol is its index here, and third-party scanners
// depend on the exact table.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

// ErrInvalid is the base sentinel for malformed base45 input. Specific
// failures (bad symbol, dangling length, overflowing triplet) wrap it
// with position detail.
var ErrInvalid = errors.New("base45: invalid encoding")

// reverse maps an alphabet byte to its value, 0xFF for bytes outside
// the alphabet.
var reverse [256]byte

func init() {
	for i := range reverse {
		reverse[i] = 0xFF
	}
	for i := 0; i < len(alphabet); i++ {
		reverse[alphabet[i]] = byte(i)
	}
}

// Encode encodes data as base45 text. Each pair of input bytes a,b is
// treated as the 16-bit value a*256+b and emitted as three base-45
// digits, least significant first; a trailing single byte is emitted
// as two digits.
func Encode(data []byte) string {
	out := make([]byte, 0, (len(data)/2)*3+3)
	for len(data) >= 2 {
		n := uint32(data[0])<<8 | uint32(data[1])
		out = append(out, alphabet[n%45], alphabet[n/45%45], alphabet[n/(45*45)])
		data = data[2:]
	}
	if len(data) == 1 {
		n := uint32(data[0])
		out = append(out, alphabet[n%45], alphabet[n/45])
	}
	return string(out)
}

// Decode decodes base45 text back to bytes. The input length must be
// 0 or 2 modulo 3 (a lone trailing symbol cannot encode anything), all
// symbols must be in the alphabet, and each triplet must decode to a
// value that fits in two bytes.
func Decode(text string) ([]byte, error) {
	if len(text)%3 == 1 {
		return nil, fmt.Errorf("%w: length %d leaves a dangling symbol", ErrInvalid, len(text))
	}

	values := make([]byte, len(text))
	for i := 0; i < len(text); i++ {
		v := reverse[text[i]]
		if v == 0xFF {
			return nil, fmt.Errorf("%w: symbol %q at position %d", ErrInvalid, text[i], i)
		}
		values[i] = v
	}

	out := make([]byte, 0, len(text)/3*2+1)
	for len(values) >= 3 {
		n := uint32(values[0]) + 45*uint32(values[1]) + 45*45*uint32(values[2])
		if n > 0xFFFF {
			return nil, fmt.Errorf("%w: triplet value %d exceeds 0xFFFF", ErrInvalid, n)
		}
		out = append(out, byte(n>>8), byte(n))
		values = values[3:]
	}
	if len(values) == 2 {
		n := uint32(values[0]) + 45*uint32(values[1])
		if n > 0xFF {
			return nil, fmt.Errorf("%w: trailing pair value %d exceeds 0xFF", ErrInvalid, n)
		}
		out = append(out, byte(n))
	}
	return out, nil
}
