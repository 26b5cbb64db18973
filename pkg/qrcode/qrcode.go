package qrcode

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Render encodes a QRIS payload string as a PNG for clients that cannot
// render the raw EMV payload themselves.
func Render(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qrcode: empty payload")
	}
	if size <= 0 {
		size = 256
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode PNG: %w", err)
	}
	return png, nil
}
