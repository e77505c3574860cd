// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package cwt

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/hcert-foundation/hcert/lib/codec"
)

// ErrDateRange reports a NumericDate whose value does not fit a 64-bit
// signed second count. Out-of-range dates are a hard decode error,
// never wrapped or clamped.
var ErrDateRange = errors.New("cwt: date out of representable range")

// ErrDateNotNumber reports a claim value that is not a recognized date
// representation: not a number, and not a tag 0 or tag 1 wrapping.
var ErrDateNotNumber = errors.New("cwt: expected number for date representation")

// maxSecondsFloat is the smallest float64 that exceeds math.MaxInt64.
// float64(math.MaxInt64) rounds up to exactly 2^63, so >= is the
// correct overflow comparison.
const maxSecondsFloat = float64(math.MaxInt64)

// minSecondsFloat is float64(math.MinInt64), exactly -2^63.
const minSecondsFloat = float64(math.MinInt64)

// numericDate encodes t as a NumericDate: the epoch-second count as a
// plain untagged integer. Sub-second precision is dropped (floored,
// never rounded up), and no tag is emitted — RFC 8392 §2 requires the
// generic date tag to be omitted for NumericDate fields.
func numericDate(t time.Time) (codec.RawMessage, error) {
	return codec.Marshal(t.Unix())
}

// parseNumericDate decodes a NumericDate claim value to a UTC instant.
// Three encodings are accepted: an untagged integer or float second
// count, a tag 0 RFC 3339 text date, and a tag 1 numeric date (the
// deviation RFC 8392 tells decoders to tolerate). Anything else fails
// with ErrDateNotNumber; values outside the int64 second range fail
// with ErrDateRange.
func parseNumericDate(raw codec.RawMessage) (time.Time, error) {
	var value any
	if err := codec.Unmarshal(raw, &value); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrDateNotNumber, err)
	}
	return dateFromValue(value)
}

func dateFromValue(value any) (time.Time, error) {
	switch v := value.(type) {
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case uint64:
		if v > math.MaxInt64 {
			return time.Time{}, fmt.Errorf("%w: %d seconds", ErrDateRange, v)
		}
		return time.Unix(int64(v), 0).UTC(), nil
	case float64:
		return dateFromFloat(v)
	case time.Time:
		// The CBOR decoder converts tag 0 and tag 1 values to
		// time.Time when decoding into an empty interface.
		return v.UTC(), nil
	case big.Int:
		return dateFromBig(&v)
	case *big.Int:
		return dateFromBig(v)
	case codec.Tag:
		return dateFromTag(v)
	default:
		return time.Time{}, fmt.Errorf("%w: got %T", ErrDateNotNumber, value)
	}
}

func dateFromFloat(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, fmt.Errorf("%w: %v seconds", ErrDateNotNumber, v)
	}
	if v >= maxSecondsFloat || v < minSecondsFloat {
		return time.Time{}, fmt.Errorf("%w: %v seconds", ErrDateRange, v)
	}
	seconds := math.Floor(v)
	nanos := math.Round((v - seconds) * float64(time.Second))
	return time.Unix(int64(seconds), int64(nanos)).UTC(), nil
}

func dateFromBig(v *big.Int) (time.Time, error) {
	if !v.IsInt64() {
		return time.Time{}, fmt.Errorf("%w: %s seconds", ErrDateRange, v)
	}
	return time.Unix(v.Int64(), 0).UTC(), nil
}

// dateFromTag handles tag 0 and tag 1 wrappings that reach us still
// tagged (e.g. a tag nested inside another tag, which the decoder does
// not auto-convert).
func dateFromTag(tag codec.Tag) (time.Time, error) {
	switch tag.Number {
	case 0:
		text, ok := tag.Content.(string)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: tag 0 content is %T", ErrDateNotNumber, tag.Content)
		}
		t, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrDateNotNumber, err)
		}
		return t.UTC(), nil
	case 1:
		return dateFromValue(tag.Content)
	default:
		return time.Time{}, fmt.Errorf("%w: unexpected tag %d", ErrDateNotNumber, tag.Number)
	}
}
