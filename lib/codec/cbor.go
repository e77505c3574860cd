// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes, so signatures over encoded claims are
// reproducible.
var encMode cbor.EncMode

// decMode is the CBOR decoder for untrusted certificate input.
// Duplicate map keys are a decode error: a claims map with two entries
// for the same key is either a broken encoder or an attempt to smuggle
// a second value past a verifier that reads the first.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Trailing bytes after the first
// data item are an error (see IsExtraneousData).
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// UnmarshalFirst decodes the first CBOR data item in data into v and
// returns the remaining unconsumed bytes. Use this when data is a CBOR
// sequence rather than a single item.
func UnmarshalFirst(data []byte, v any) (rest []byte, err error) {
	return decMode.UnmarshalFirst(data, v)
}

// RawMessage is a raw encoded CBOR value. Claim values are stored in
// this form so decoding is deferred until an accessor asks for a
// concrete type. Type alias so consumers import only lib/codec, not
// fxamacker/cbor directly.
type RawMessage = cbor.RawMessage

// Tag is a decoded CBOR tag (number plus content). Exposed for the
// NumericDate codec, which must distinguish tag 0 (text date) from
// tag 1 (numeric date) wrappings.
type Tag = cbor.Tag

// RawTag is a CBOR tag whose content is left as raw bytes. Used to
// strip the COSE_Sign1 tag (18) without decoding the tuple twice.
type RawTag = cbor.RawTag

// IsExtraneousData reports whether err is the decoder's complaint
// about well-formed CBOR followed by trailing garbage. Callers that
// require exactly one data item (token decode) treat this as a
// structural error in its own right.
func IsExtraneousData(err error) bool {
	var extra *cbor.ExtraneousDataError
	return errors.As(err, &extra)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data. Used by inspection tooling only; the
// verification path never goes through diagnostic text.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// DiagnoseFirst returns the diagnostic notation for the first data
// item in data plus the unconsumed remainder, for walking CBOR
// sequences item by item.
func DiagnoseFirst(data []byte) (notation string, rest []byte, err error) {
	return cbor.DiagnoseFirst(data)
}
