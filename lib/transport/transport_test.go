// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/hcert-foundation/hcert/lib/base45"
)

func TestRoundtrip(t *testing.T) {
	cases := [][]byte{
		[]byte{},
		[]byte{0x00},
		[]byte("a typical signed token body"),
		bytes.Repeat([]byte{0xD2, 0x84, 0x43, 0xA1}, 200),
	}
	allBytes := make([]byte, 256)
	for i := range allBytes {
		allBytes[i] = byte(i)
	}
	cases = append(cases, allBytes)

	for _, signed := range cases {
		text, err := Encode(signed)
		if err != nil {
			t.Fatalf("Encode(%d bytes): %v", len(signed), err)
		}
		if !strings.HasPrefix(text, Prefix) {
			t.Fatalf("Encode output %q lacks prefix", text[:8])
		}
		decoded, err := Decode(text)
		if err != nil {
			t.Fatalf("Decode(%d bytes): %v", len(signed), err)
		}
		if !bytes.Equal(decoded, signed) {
			t.Errorf("roundtrip mismatch for %d-byte input", len(signed))
		}
	}
}

func TestEncodeCompresses(t *testing.T) {
	// CBOR claim maps are repetitive; the transport form should be
	// smaller than a naive base45 encoding of the raw bytes.
	signed := bytes.Repeat([]byte("AAAABBBB"), 128)
	text, err := Encode(signed)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(text) >= len(base45.Encode(signed)) {
		t.Errorf("transport form (%d chars) not smaller than uncompressed base45 (%d chars)",
			len(text), len(base45.Encode(signed)))
	}
}

func TestDecodeStageErrors(t *testing.T) {
	valid, err := Encode([]byte("payload"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cases := []struct {
		name string
		text string
		want error
	}{
		{"empty input", "", ErrPrefix},
		{"foreign scheme", "LT1:ABC", ErrPrefix},
		{"lowercase prefix", "hc1:" + valid[4:], ErrPrefix},
		{"non-alphabet character", Prefix + "abc", ErrEncoding},
		{"dangling base45 symbol", Prefix + "BB8Q", ErrEncoding},
		{"not a zlib stream", Prefix + base45.Encode([]byte("totally not zlib")), ErrCorrupt},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Decode(c.text)
			if !errors.Is(err, c.want) {
				t.Errorf("Decode(%q) error = %v, want %v", c.text, err, c.want)
			}
		})
	}
}

func TestDecodeTruncatedStream(t *testing.T) {
	text, err := Encode(bytes.Repeat([]byte("certificate"), 50))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	compressed, err := base45.Decode(strings.TrimPrefix(text, Prefix))
	if err != nil {
		t.Fatalf("base45.Decode: %v", err)
	}

	truncated := Prefix + base45.Encode(compressed[:len(compressed)/2])
	_, err = Decode(truncated)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("error = %v, want ErrCorrupt", err)
	}
}

// A compressed stream that inflates past the cap must be rejected
// instead of allocating whatever the attacker asks for.
func TestDecodeInflationCap(t *testing.T) {
	var bomb bytes.Buffer
	writer := zlib.NewWriter(&bomb)
	if _, err := writer.Write(make([]byte, maxInflatedSize*4)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := Decode(Prefix + base45.Encode(bomb.Bytes()))
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("error = %v, want ErrCorrupt", err)
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("error %q does not mention the cap", err)
	}
}
