package ds

import (
	"strings"
	"sync"
	"time"
)

// pairingLifetime bounds how long a rendezvous token stays valid
// (spec.md section 4.4: "Lifetime ≤ 45 s; single-use").
const pairingLifetime = 45 * time.Second

// pairingEntry is the short-lived rendezvous record for one token.
type pairingEntry struct {
	phoneConnected  bool
	cameraConnected bool
	phoneNotified   bool
	cameraNotified  bool
	createdAt       time.Time
	wake            chan struct{}
}

func (p *pairingEntry) expired(now time.Time) bool {
	return now.Sub(p.createdAt) > pairingLifetime
}

// PairingTable implements the `/pair` rendezvous: two requests bearing
// the same token with opposite roles within the lifetime window both
// resolve "paired"; anything else resolves "expired" (spec.md section
// 4.4, invariant PR-1).
type PairingTable struct {
	mu      sync.Mutex
	entries map[string]*pairingEntry
	now     func() time.Time
}

// NewPairingTable creates an empty table.
func NewPairingTable() *PairingTable {
	return &PairingTable{
		entries: make(map[string]*pairingEntry),
		now:     time.Now,
	}
}

// Rendezvous performs one side's half of the pairing handshake for
// (token, role) and blocks, for at most pairingLifetime, until the
// handshake resolves. role must be transport.PairRolePhone or
// transport.PairRoleCamera.
func (t *PairingTable) Rendezvous(token, role string) string {
	if strings.Contains(token, `"`) {
		return "invalid_token"
	}
	if role != "phone" && role != "camera" {
		return "invalid_role"
	}

	t.mu.Lock()
	now := t.now()
	e, ok := t.entries[token]
	if ok && e.expired(now) {
		delete(t.entries, token)
		ok = false
	}
	if !ok {
		e = &pairingEntry{createdAt: now, wake: make(chan struct{})}
		t.entries[token] = e
	}

	alreadyNotified := (role == "phone" && e.phoneNotified) || (role == "camera" && e.cameraNotified)
	if alreadyNotified {
		t.mu.Unlock()
		return "expired"
	}

	if role == "phone" {
		e.phoneConnected = true
	} else {
		e.cameraConnected = true
	}

	if e.phoneConnected && e.cameraConnected {
		e.phoneNotified = true
		e.cameraNotified = true
		close(e.wake)
		t.mu.Unlock()
		return "paired"
	}

	wake := e.wake
	t.mu.Unlock()

	select {
	case <-wake:
		t.mu.Lock()
		status := "expired"
		if e.phoneConnected && e.cameraConnected {
			status = "paired"
		}
		t.mu.Unlock()
		return status
	case <-time.After(pairingLifetime):
		return "expired"
	}
}
