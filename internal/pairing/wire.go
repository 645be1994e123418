package pairing

import (
	"encoding/json"

	"github.com/secluso/secluso/internal/mls"
)

// msgType tags each handshake message the way spec.md section 4.5
// describes PairingMsg's type field.
type msgType string

const (
	msgAppToCamera msgType = "AppToCamera"
	msgCameraToApp msgType = "CameraToApp"
)

// handshakeMsg carries one side's key packages for one sub-channel.
type handshakeMsg struct {
	Type        msgType        `json:"type"`
	KeyPackages []mls.KeyPackage `json:"key_packages"`
}

func marshalHandshake(t msgType, kps []mls.KeyPackage) ([]byte, error) {
	return json.Marshal(handshakeMsg{Type: t, KeyPackages: kps})
}

func unmarshalHandshake(data []byte, want msgType) ([]mls.KeyPackage, error) {
	var m handshakeMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Type != want {
		return nil, ErrUnexpectedMessageType
	}
	return m.KeyPackages, nil
}
