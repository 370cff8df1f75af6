// Package utils provides helper functionality shared across netident
// components, including QR code generation for tunnel configurations.
package utils

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// QRCodeGenerator generates QR codes for tunnel configurations so they can
// be imported into the WireGuard mobile applications by scanning.
type QRCodeGenerator struct {
	// Size determines the pixel dimensions of the generated QR code
	Size int
	// RecoveryLevel determines the error correction level for the QR code
	RecoveryLevel qrcode.RecoveryLevel
}

// NewQRCodeGenerator creates a new QR code generator with default settings.
// The defaults balance image size against readability for phone cameras.
// Returns a pointer to the newly created QRCodeGenerator.
func NewQRCodeGenerator() *QRCodeGenerator {
	return &QRCodeGenerator{
		Size:          256,
		RecoveryLevel: qrcode.Medium,
	}
}

// GeneratePNG generates a QR code as PNG image data for the given content.
// Returns the PNG bytes or an error if generation fails.
func (qr *QRCodeGenerator) GeneratePNG(content string) ([]byte, error) {
	pngData, err := qrcode.Encode(content, qr.RecoveryLevel, qr.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code PNG: %w", err)
	}
	return pngData, nil
}

// GenerateBase64 generates a QR code as a base64-encoded PNG data URI.
// This is useful for embedding the image directly in JSON responses
// without a separate image endpoint.
// Returns the data URI or an error if generation fails.
func (qr *QRCodeGenerator) GenerateBase64(content string) (string, error) {
	pngData, err := qr.GeneratePNG(content)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG for base64 encoding: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(pngData)
	return fmt.Sprintf("data:image/png;base64,%s", encoded), nil
}

// GenerateTunnelQR generates a QR code for a rendered tunnel configuration.
// The configuration must contain both an [Interface] and a [Peer] section
// so that scanning apps can import it directly.
// Returns the base64-encoded PNG data URI or an error if generation fails.
func (qr *QRCodeGenerator) GenerateTunnelQR(config string) (string, error) {
	if config == "" {
		return "", fmt.Errorf("configuration cannot be empty")
	}
	if !strings.Contains(config, "[Interface]") || !strings.Contains(config, "[Peer]") {
		return "", fmt.Errorf("invalid tunnel configuration format")
	}

	return qr.GenerateBase64(config)
}
