package pairing

import "errors"

var (
	// ErrUnexpectedMessageType is returned when a handshake peer sends a
	// PairingMsg with the wrong type tag for its step.
	ErrUnexpectedMessageType = errors.New("pairing: unexpected handshake message type")

	// ErrNoKeyPackage is returned when a peer's handshake message carries
	// no key package where exactly one was expected.
	ErrNoKeyPackage = errors.New("pairing: expected exactly one key package")
)
