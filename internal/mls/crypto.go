package mls

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// epochSecretSize matches the 128-bit security level of ciphersuite
// MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519 expanded to a 32-byte
// HKDF-SHA256 secret; the AES-128-GCM message keys derived from it are
// gcmKeySize (16) bytes.
const epochSecretSize = 32

const gcmNonceSize = 12
const gcmKeySize = 16 // AES-128

// hkdfExpand derives length bytes from secret using HKDF-Expand (no
// separate extract step: secret is already high-entropy), the same
// derivation shape as other_examples/germtb-mlsgit's exportSecret and
// advanceEpoch helpers.
func hkdfExpand(secret, info []byte, length int) ([]byte, error) {
	r := hkdf.Expand(sha256.New, secret, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("mls: hkdf expand: %w", err)
	}
	return out, nil
}

// hkdfExtractExpand runs full HKDF-Extract-then-Expand over ikm keyed by
// salt, used when mixing fresh entropy (a DH output, an external PSK)
// rather than ratcheting an existing secret.
func hkdfExtractExpand(salt, ikm, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("mls: hkdf extract+expand: %w", err)
	}
	return out, nil
}

// advanceEpochSecret derives the next epoch's secret deterministically
// from the current one and the epoch number being entered, so that any
// group member holding the current epoch secret can independently
// recompute the next one once it observes a commit's epoch number --
// mirrors advanceEpoch in other_examples/germtb-mlsgit/internal/mls/group.go.
func advanceEpochSecret(current []byte, nextEpoch uint64) ([]byte, error) {
	epochBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(epochBytes, nextEpoch)
	return hkdfExtractExpand(epochBytes, current, []byte("secluso-update"), epochSecretSize)
}

// dh performs the X25519 Diffie-Hellman operation between a local
// private key and a peer's public key bytes.
func dh(priv *ecdh.PrivateKey, peerPub []byte) ([]byte, error) {
	pub, err := ecdh.X25519().NewPublicKey(peerPub)
	if err != nil {
		return nil, fmt.Errorf("mls: invalid peer kem public key: %w", err)
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("mls: ecdh: %w", err)
	}
	return shared, nil
}

// messageKeyNonce derives the per-message AES-128-GCM key and nonce from
// the epoch secret, the AAD string, and a monotonic per-sender counter,
// so that every application/control message in an epoch uses a distinct
// key even though they all share one epoch secret.
func messageKeyNonce(epochSecret []byte, aad []byte, counter uint64) (key, nonce []byte, err error) {
	info := make([]byte, 0, len(aad)+8+len("secluso-msg"))
	info = append(info, []byte("secluso-msg")...)
	info = append(info, aad...)
	counterBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(counterBytes, counter)
	info = append(info, counterBytes...)

	block, err := hkdfExpand(epochSecret, info, gcmKeySize+gcmNonceSize)
	if err != nil {
		return nil, nil, err
	}
	return block[:gcmKeySize], block[gcmKeySize:], nil
}

func sealAESGCM(key, nonce, plaintext, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("mls: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, fmt.Errorf("mls: new gcm: %w", err)
	}
	return gcm.Seal(nil, nonce, plaintext, aad), nil
}

func openAESGCM(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("mls: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, fmt.Errorf("mls: new gcm: %w", err)
	}
	pt, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return pt, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("mls: random bytes: %w", err)
	}
	return b, nil
}
