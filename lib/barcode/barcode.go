// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package barcode renders the certificate's transport text as a QR
// code and scans it back. Rendering produces both a raster (PNG) and
// a vector (SVG) form of the same symbol; scanning accepts any image
// format the stdlib decoders register.
//
// The symbology parameters are part of the interop contract: QR with
// medium error correction, tuned for a physically printed and
// potentially degraded medium.
package barcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
)

// ErrNoBarcode means no QR symbol could be located or decoded in the
// supplied image. Distinct from the transport-layer errors: this is
// "not a barcode at all", not "a barcode with bad content".
var ErrNoBarcode = errors.New("barcode: no QR code found in image")

// DefaultSize is the raster edge length in pixels when the caller
// does not specify one.
const DefaultSize = 512

// Type describes the rendered symbology, for decode disambiguation by
// third-party scanners.
type Type struct {
	Symbology       string `json:"symbology"`
	Charset         string `json:"charset"`
	ErrorCorrection string `json:"errorCorrection"`
}

// QRMedium is the one type this module renders.
var QRMedium = Type{
	Symbology:       "qr",
	Charset:         "utf-8",
	ErrorCorrection: "medium",
}

// Barcode is a terminal rendering of the transport text: the same
// symbol as raster and vector, plus its type descriptor.
type Barcode struct {
	// Text is the encoded transport text form.
	Text string

	// PNG is the raster rendering.
	PNG []byte

	// SVG is the scalable vector rendering of the same symbol.
	SVG []byte

	// Type identifies the symbology and text encoding.
	Type Type
}

// Render encodes text as a QR symbol. Size is the raster edge length
// in pixels; zero or negative selects DefaultSize. The vector form is
// size-independent.
func Render(text string, size int) (*Barcode, error) {
	if text == "" {
		return nil, fmt.Errorf("barcode: empty content")
	}
	if size <= 0 {
		size = DefaultSize
	}

	code, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("barcode: building QR symbol: %w", err)
	}

	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("barcode: rendering PNG: %w", err)
	}

	return &Barcode{
		Text: text,
		PNG:  png,
		SVG:  renderSVG(code.Bitmap()),
		Type: QRMedium,
	}, nil
}

// renderSVG emits the module matrix as an SVG document: white field,
// one unit rect per dark module. Scalable without interpolation
// artifacts, which matters for print.
func renderSVG(modules [][]bool) []byte {
	edge := len(modules)
	var out bytes.Buffer
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, edge, edge)
	fmt.Fprintf(&out, `<rect width="%d" height="%d" fill="#ffffff"/>`, edge, edge)
	out.WriteString(`<g fill="#000000">`)
	for y, row := range modules {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&out, `<rect x="%d" y="%d" width="1" height="1"/>`, x, y)
			}
		}
	}
	out.WriteString(`</g></svg>`)
	return out.Bytes()
}

// Scan locates and decodes a QR symbol in imageData (any registered
// image format) and returns its text content.
func Scan(imageData []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoBarcode, err)
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoBarcode, err)
	}

	reader := zxqrcode.NewQRCodeReader()
	result, err := reader.Decode(bitmap, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoBarcode, err)
	}
	return result.GetText(), nil
}
