// Package qr renders share URLs as downloadable QR code PNGs.
package qr

import qrcode "github.com/skip2/go-qrcode"

// DefaultSize is the rendered PNG edge length in pixels.
const DefaultSize = 512

// EncodePNG returns a PNG image encoding the given URL.
func EncodePNG(url string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(url, qrcode.Medium, size)
}
