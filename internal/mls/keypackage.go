package mls

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
)

// KeyPackage is the public material a member publishes so a peer can
// add it to a group: identity, signing public key, and key-exchange
// public key, self-signed so a receiver can check it was not tampered
// with in transit over the untrusted delivery service.
type KeyPackage struct {
	Identity  []byte `json:"identity"`
	SigPub    []byte `json:"sig_pub"`
	KemPub    []byte `json:"kem_pub"`
	Signature []byte `json:"signature"`
}

func buildKeyPackage(id *Identity) KeyPackage {
	payload := keyPackageSignedPayload(id.ID, id.SigPub, id.KemPub)
	return KeyPackage{
		Identity:  id.ID,
		SigPub:    id.SigPub,
		KemPub:    id.KemPub,
		Signature: ed25519.Sign(id.sigPriv, payload),
	}
}

func keyPackageSignedPayload(identity, sigPub, kemPub []byte) []byte {
	buf := make([]byte, 0, len(identity)+len(sigPub)+len(kemPub))
	buf = append(buf, identity...)
	buf = append(buf, sigPub...)
	buf = append(buf, kemPub...)
	return buf
}

// Verify checks the key package's self-signature.
func (kp KeyPackage) Verify() error {
	if len(kp.SigPub) != ed25519.PublicKeySize {
		return fmt.Errorf("mls: key package signing key has wrong size")
	}
	payload := keyPackageSignedPayload(kp.Identity, kp.SigPub, kp.KemPub)
	if !ed25519.Verify(kp.SigPub, payload, kp.Signature) {
		return fmt.Errorf("mls: key package signature invalid")
	}
	return nil
}

func (kp KeyPackage) equalIdentity(id []byte) bool {
	return bytes.Equal(kp.Identity, id)
}
