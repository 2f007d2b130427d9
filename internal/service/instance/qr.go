package instance

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const qrSize = 300

func renderPNG(code string, size int) ([]byte, error) {
	if size <= 0 {
		size = qrSize
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("renderizar QR code: %w", err)
	}
	return png, nil
}

func renderDataURL(code string) (string, error) {
	png, err := renderPNG(code, qrSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
