package mls

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
)

const identityAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// identityLen is the fixed length of a per-client random identity,
// persisted once at first run (spec.md section 3, "MlsClient").
const identityLen = 16

// Identity is the long-term per-client key material: a random
// human-opaque identifier plus the Ed25519 credential signing key and
// the X25519 key-exchange key used to build key packages.
type Identity struct {
	ID      []byte `json:"id"`
	SigPub  []byte `json:"sig_pub"`
	sigPriv ed25519.PrivateKey
	KemPub  []byte `json:"kem_pub"`
	kemPriv *ecdh.PrivateKey
}

// identityPersisted is the on-disk form; private keys are seeds, not
// derived structs, so they round-trip through the X25519/Ed25519
// constructors on load.
type identityPersisted struct {
	ID       []byte `json:"id"`
	SigSeed  []byte `json:"sig_seed"`
	KemBytes []byte `json:"kem_bytes"`
}

// NewIdentity generates a fresh random identity: a 16-character
// alphanumeric ID plus fresh Ed25519 and X25519 keypairs.
func NewIdentity() (*Identity, error) {
	id := make([]byte, identityLen)
	alphabetLen := len(identityAlphabet)
	raw := make([]byte, identityLen)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("mls: generate identity bytes: %w", err)
	}
	for i, b := range raw {
		id[i] = identityAlphabet[int(b)%alphabetLen]
	}

	sigPub, sigPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("mls: generate signing key: %w", err)
	}

	kemPriv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("mls: generate kem key: %w", err)
	}

	return &Identity{
		ID:      id,
		SigPub:  sigPub,
		sigPriv: sigPriv,
		KemPub:  kemPriv.PublicKey().Bytes(),
		kemPriv: kemPriv,
	}, nil
}

func (i *Identity) marshal() ([]byte, error) {
	return json.Marshal(identityPersisted{
		ID:       i.ID,
		SigSeed:  i.sigPriv.Seed(),
		KemBytes: i.kemPriv.Bytes(),
	})
}

func unmarshalIdentity(data []byte) (*Identity, error) {
	var p identityPersisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	sigPriv := ed25519.NewKeyFromSeed(p.SigSeed)
	kemPriv, err := ecdh.X25519().NewPrivateKey(p.KemBytes)
	if err != nil {
		return nil, fmt.Errorf("mls: restore kem key: %w", err)
	}
	return &Identity{
		ID:      p.ID,
		SigPub:  sigPriv.Public().(ed25519.PublicKey),
		sigPriv: sigPriv,
		KemPub:  kemPriv.PublicKey().Bytes(),
		kemPriv: kemPriv,
	}, nil
}
