// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport makes a signed token survive printing and
// scanning: deflate-compress the token bytes, encode them as base45
// text, and prefix the scheme marker. Each decode stage rejects
// malformed input with its own error, so a verifier can tell "not a
// certificate barcode" (wrong prefix) from "certificate barcode, but
// damaged or tampered" (base45 or decompression failure).
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/hcert-foundation/hcert/lib/base45"
)

// Prefix is the scheme/version marker on the transport text form.
// Scanners use it to recognize the format before attempting a full
// decode; a version bump changes this string.
const Prefix = "HC1:"

// maxInflatedSize caps decompression output. The compressed stream's
// claimed size is attacker-controlled; a real signed token is a few
// hundred bytes, so 64 KiB is generous without letting a crafted
// stream balloon memory.
const maxInflatedSize = 64 * 1024

// Stage errors, one per decode layer.
var (
	// ErrPrefix means the text does not start with the scheme marker:
	// whatever was scanned, it is not one of our certificates.
	ErrPrefix = errors.New("transport: missing HC1 prefix")

	// ErrEncoding means the base45 layer rejected the text.
	ErrEncoding = errors.New("transport: invalid base45 payload")

	// ErrCorrupt means the compressed payload did not inflate: the
	// barcode is ours but the content is damaged or truncated.
	ErrCorrupt = errors.New("transport: corrupt compressed payload")
)

// Encode produces the transport text form of a signed token:
// zlib-compressed, base45-encoded, prefix-marked.
func Encode(signed []byte) (string, error) {
	var compressed bytes.Buffer
	writer, err := zlib.NewWriterLevel(&compressed, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("creating compressor: %w", err)
	}
	if _, err := writer.Write(signed); err != nil {
		return "", fmt.Errorf("compressing token: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing compression: %w", err)
	}
	return Prefix + base45.Encode(compressed.Bytes()), nil
}

// Decode inverts Encode, returning the signed token bytes.
func Decode(text string) ([]byte, error) {
	body, ok := strings.CutPrefix(text, Prefix)
	if !ok {
		return nil, ErrPrefix
	}

	compressed, err := base45.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer reader.Close()

	// Read one byte past the cap so an over-limit stream is
	// distinguishable from one that exactly fills it.
	signed, err := io.ReadAll(io.LimitReader(reader, maxInflatedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(signed) > maxInflatedSize {
		return nil, fmt.Errorf("%w: inflated payload exceeds %d bytes", ErrCorrupt, maxInflatedSize)
	}
	return signed, nil
}
