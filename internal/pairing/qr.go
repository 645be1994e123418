// Package pairing implements the out-of-band handshake that bootstraps
// the five MLS sub-channel groups between a camera hub and a mobile
// app from a QR-delivered shared secret (spec.md section 4.5).
package pairing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/secluso/secluso/internal/mls"
)

// SecretLen is the length of the camera-generated out-of-band secret
// (spec.md section 4.5: "72-byte random camera_secret"), matching
// mls.NumSecretBytes.
const SecretLen = mls.NumSecretBytes

// qrVersion is the payload format tag embedded in the QR code.
const qrVersion = "v1.1"

// QRPayload is the JSON structure encoded into the pairing QR code.
type QRPayload struct {
	Version string `json:"v"`
	Secret  string `json:"cs"` // base64url(camera_secret)
}

// ErrBadSecretLength is returned when a decoded secret is not exactly
// SecretLen bytes.
var ErrBadSecretLength = errors.New("pairing: camera secret has wrong length")

// NewQRPayload builds the QR payload for a freshly generated secret.
func NewQRPayload(secret []byte) (QRPayload, error) {
	if len(secret) != SecretLen {
		return QRPayload{}, ErrBadSecretLength
	}
	return QRPayload{Version: qrVersion, Secret: base64.URLEncoding.EncodeToString(secret)}, nil
}

// Marshal serializes the payload to the JSON text embedded in the QR
// code image.
func (p QRPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// ParseQRPayload decodes a scanned QR code's JSON text and extracts the
// camera secret.
func ParseQRPayload(data []byte) ([]byte, error) {
	var p QRPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pairing: parse qr payload: %w", err)
	}
	secret, err := base64.URLEncoding.DecodeString(p.Secret)
	if err != nil {
		return nil, fmt.Errorf("pairing: decode qr secret: %w", err)
	}
	if len(secret) != SecretLen {
		return nil, ErrBadSecretLength
	}
	return secret, nil
}
