// Package mls implements the two-party, forward-secret, mutually
// authenticated sub-channel described in spec.md section 4.1. No MLS
// library is available in the reference corpus (other_examples'
// germtb-mlsgit/internal/mls/group.go solves the same problem — "MLS-like
// semantics ... using Ed25519 + HKDF" — for an unrelated host project),
// so this package builds a deliberately simplified construction pinned
// to ciphersuite MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519: no
// ratchet tree (spec.md Non-goals cap groups at two members, so
// TreeKEM's scaling machinery buys nothing), X25519 for key exchange,
// Ed25519 for credentials, AES-128-GCM for message and welcome sealing,
// HKDF-SHA256 for every secret derivation.
package mls

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/secluso/secluso/internal/subchannel"
)

const keyStorePrefix = "key_store"
const groupStatePrefix = "group_state"

// NumSecretBytes is the required length of the external PSK used to
// bind a pairing Invite/Welcome exchange (spec.md section 4.1, invite).
const NumSecretBytes = 72

// Client is one MLS sub-channel endpoint, owned by a single logical
// task and serialized behind the hub-level Clients mutex (spec.md
// section 5). It holds its own random identity, the live group state
// once paired, and a reference to the directory it persists into.
type Client struct {
	tag      subchannel.Tag
	stateDir string
	identity *Identity
	kp       KeyPackage
	group    *groupState
	nowUnix  func() int64
}

// New restores a client's identity from stateDir if one was already
// persisted there, or generates a fresh one on first run. A group
// persisted in stateDir by an earlier run is restored as well.
func New(stateDir string, tag subchannel.Tag) (*Client, error) {
	c := &Client{
		tag:      tag,
		stateDir: stateDir,
		nowUnix:  func() int64 { return time.Now().Unix() },
	}

	var id *Identity
	err := loadState(stateDir, ksName(tag), func(data []byte) error {
		restored, uerr := unmarshalIdentity(data)
		if uerr != nil {
			return uerr
		}
		id = restored
		return nil
	})
	switch {
	case err == nil:
		c.identity = id
	case isNotFound(err):
		fresh, gerr := NewIdentity()
		if gerr != nil {
			return nil, gerr
		}
		c.identity = fresh
		if serr := c.saveKeyStore(); serr != nil {
			return nil, serr
		}
	default:
		return nil, fmt.Errorf("mls: load key store for %s: %w", tag, err)
	}

	c.kp = buildKeyPackage(c.identity)

	// A group may already exist from a previous run; load it if so, but
	// it is not an error for a freshly-paired client to have none yet.
	var gs *groupState
	gerr := loadState(stateDir, gsName(tag), func(data []byte) error {
		restored, uerr := unmarshalGroupState(data)
		if uerr != nil {
			return uerr
		}
		gs = restored
		return nil
	})
	if gerr == nil {
		c.group = gs
	} else if !isNotFound(gerr) {
		return nil, fmt.Errorf("mls: load group state for %s: %w", tag, gerr)
	}

	return c, nil
}

// CreateGroup starts a brand-new single-member group under the given
// shared, non-confidential group name. Legal only before any group is
// loaded.
func (c *Client) CreateGroup(groupName string) error {
	if c.group != nil {
		return ErrGroupAlreadyLoaded
	}
	groupID, err := randomBytes(32)
	if err != nil {
		return err
	}
	epochSecret, err := randomBytes(epochSecretSize)
	if err != nil {
		return err
	}
	c.group = &groupState{
		GroupID:     groupID,
		GroupName:   groupName,
		Epoch:       0,
		EpochSecret: epochSecret,
	}
	return nil
}

// KeyPackages returns the cached key-package set generated at
// construction time.
func (c *Client) KeyPackages() []KeyPackage {
	return []KeyPackage{c.kp}
}

// Invite adds peerKP to the caller's (currently solo) group, installing
// secret as an external PSK, and returns the serialized Welcome the
// invitee needs to join. Fails if the caller already has a contact.
func (c *Client) Invite(peerKP KeyPackage, secret []byte) ([]byte, error) {
	if c.group == nil {
		return nil, ErrNoGroup
	}
	if c.group.OnlyContact != nil {
		return nil, ErrAlreadyHasContact
	}
	if len(secret) != NumSecretBytes {
		return nil, ErrBadSecretLength
	}
	if err := peerKP.Verify(); err != nil {
		return nil, err
	}

	wrapKey, err := c.welcomeWrapKey(peerKP.KemPub, secret)
	if err != nil {
		return nil, err
	}

	newEpochSecret, err := randomBytes(epochSecretSize)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(gcmNonceSize)
	if err != nil {
		return nil, err
	}
	aad := []byte(c.group.GroupName + " welcome")
	sealed, err := sealAESGCM(wrapKey, nonce, newEpochSecret, aad)
	if err != nil {
		return nil, err
	}

	welcome := Welcome{
		GroupID:           c.group.GroupID,
		GroupName:         c.group.GroupName,
		Epoch:             c.group.Epoch + 1,
		InviterKeyPackage: c.kp,
		InviteeKeyPackage: peerKP,
		SealedEpochSecret: append(nonce, sealed...),
	}

	// Merge immediately: adopt the new epoch and the peer as our only
	// contact, per spec.md section 4.1 "invite".
	c.group.Epoch++
	c.group.EpochSecret = newEpochSecret
	c.group.OnlyContact = &Contact{KeyPackage: peerKP, LastUpdateTimestamp: c.nowUnix()}

	return marshalWelcome(welcome)
}

// ProcessWelcome joins a group from a Welcome message, validating that
// the group has exactly two members: expectedInviter and self. The
// supplied secret must equal the one the inviter installed, or sealing
// will fail to authenticate (MLS-3).
func (c *Client) ProcessWelcome(expectedInviter []byte, welcomeBytes, secret []byte, groupName string) error {
	if c.group != nil {
		return ErrGroupAlreadyLoaded
	}
	if len(secret) != NumSecretBytes {
		return ErrBadSecretLength
	}

	welcome, err := unmarshalWelcome(welcomeBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadWelcome, err)
	}

	if !bytes.Equal(welcome.InviterKeyPackage.Identity, expectedInviter) {
		return ErrBadWelcome
	}
	if !welcome.InviteeKeyPackage.equalIdentity(c.identity.ID) {
		return ErrBadWelcome
	}
	if err := welcome.InviterKeyPackage.Verify(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadWelcome, err)
	}
	if welcome.GroupName != groupName {
		return ErrBadWelcome
	}

	if len(welcome.SealedEpochSecret) < gcmNonceSize {
		return ErrBadWelcome
	}
	nonce := welcome.SealedEpochSecret[:gcmNonceSize]
	ciphertext := welcome.SealedEpochSecret[gcmNonceSize:]

	wrapKey, err := c.welcomeWrapKey(welcome.InviterKeyPackage.KemPub, secret)
	if err != nil {
		return err
	}
	aad := []byte(groupName + " welcome")
	epochSecret, err := openAESGCM(wrapKey, nonce, ciphertext, aad)
	if err != nil {
		// Wrong secret (or tampering) fails authentication here --
		// this is the MLS-3 enforcement point.
		return ErrInvalidCiphertext
	}

	// Group has exactly two members by construction: inviter + self.
	c.group = &groupState{
		GroupID:     welcome.GroupID,
		GroupName:   groupName,
		Epoch:       welcome.Epoch,
		EpochSecret: epochSecret,
		OnlyContact: &Contact{KeyPackage: welcome.InviterKeyPackage, LastUpdateTimestamp: c.nowUnix()},
	}
	return nil
}

func (c *Client) welcomeWrapKey(peerKemPub, secret []byte) ([]byte, error) {
	shared, err := dh(c.identity.kemPriv, peerKemPub)
	if err != nil {
		return nil, err
	}
	ikm := append(append([]byte{}, shared...), secret...)
	return hkdfExtractExpand(nil, ikm, []byte("secluso-welcome-wrap "+c.groupNameOrEmpty()), gcmKeySize)
}

func (c *Client) groupNameOrEmpty() string {
	if c.group == nil {
		return ""
	}
	return c.group.GroupName
}

// Encrypt seals plaintext as an application message for the peer,
// setting AAD to group_name + " AAD" per spec.md section 4.1.
func (c *Client) Encrypt(plaintext []byte) ([]byte, error) {
	if c.group == nil {
		return nil, ErrNoGroup
	}
	if c.group.OnlyContact == nil {
		return nil, ErrNoGroup
	}

	aad := []byte(c.group.aad())
	counter := c.group.SendCounter
	key, nonce, err := messageKeyNonce(c.group.EpochSecret, aad, counter)
	if err != nil {
		return nil, err
	}
	ct, err := sealAESGCM(key, nonce, plaintext, aad)
	if err != nil {
		return nil, err
	}
	c.group.SendCounter++

	msg := GroupMessage{
		GroupName:  c.group.GroupName,
		Epoch:      c.group.Epoch,
		Sender:     c.identity.ID,
		Kind:       KindApplication,
		Counter:    counter,
		AAD:        c.group.aad(),
		Ciphertext: ct,
		Recipients: [][]byte{c.group.OnlyContact.KeyPackage.Identity},
	}
	return marshalGroupMessage(msg)
}

// Decrypt deserializes and dispatches an incoming wire message.
// expectAppMessage selects which content kinds are acceptable, per
// spec.md section 4.1 "decrypt": Welcome, Public, and unknown body types
// are always rejected here, before process_protocol_message runs.
func (c *Client) Decrypt(wire []byte, expectAppMessage bool) ([]byte, error) {
	msg, err := unmarshalGroupMessage(wire)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	switch msg.Kind {
	case KindWelcome, KindPublicMessage:
		return nil, ErrUnexpectedKind
	case KindApplication, KindProposal, KindCommit, KindExternalJoin:
		// handled below
	default:
		return nil, ErrUnexpectedKind
	}
	return c.processProtocolMessage(msg, expectAppMessage)
}

// processProtocolMessage implements the five-step policy of spec.md
// section 4.1.
func (c *Client) processProtocolMessage(msg *GroupMessage, expectAppMessage bool) ([]byte, error) {
	if c.group == nil || c.group.OnlyContact == nil {
		return nil, ErrNoGroup
	}

	// Step 1: epoch must match exactly.
	if msg.Epoch != c.group.Epoch {
		return nil, ErrInvalidEpoch
	}

	// Step 3 (AAD) is checked before the cryptographic step so a
	// tampered-but-self-consistent envelope is rejected without needing
	// to attempt decryption; AEAD verification below additionally binds
	// the true AAD bytes into the authentication tag.
	if msg.AAD != c.group.aad() {
		return nil, ErrInvalidCiphertext
	}

	// Step 4: sender must be the group's only contact.
	if !bytes.Equal(msg.Sender, c.group.OnlyContact.KeyPackage.Identity) {
		return nil, ErrUnexpectedSender
	}

	switch msg.Kind {
	case KindApplication:
		if !expectAppMessage {
			return nil, ErrUnexpectedKind
		}
		key, nonce, err := messageKeyNonce(c.group.EpochSecret, []byte(msg.AAD), msg.Counter)
		if err != nil {
			return nil, err
		}
		pt, err := openAESGCM(key, nonce, msg.Ciphertext, []byte(msg.AAD))
		if err != nil {
			return nil, ErrInvalidCiphertext
		}
		return pt, nil

	case KindProposal:
		if expectAppMessage {
			return nil, ErrUnexpectedKind
		}
		if err := c.verifyProposalSignature(msg); err != nil {
			return nil, err
		}
		if c.group.OnlyContact.PendingUpdateProposal == nil {
			c.group.OnlyContact.PendingUpdateProposal = msg.Proposal
		}
		c.group.OnlyContact.LastUpdateTimestamp = c.nowUnix()
		return nil, nil

	case KindCommit:
		if expectAppMessage {
			return nil, ErrUnexpectedKind
		}
		if msg.Commit == nil || len(msg.Commit.ExtraProposals) > 0 {
			return nil, ErrRejectedCommit
		}
		if err := c.verifyCommitSignature(msg); err != nil {
			return nil, err
		}
		nextEpoch := c.group.Epoch + 1
		newSecret, err := advanceEpochSecret(c.group.EpochSecret, nextEpoch)
		if err != nil {
			return nil, err
		}
		c.group.Epoch = nextEpoch
		c.group.EpochSecret = newSecret
		c.group.OnlyContact.PendingUpdateProposal = nil
		c.group.OnlyContact.LastUpdateTimestamp = c.nowUnix()
		return nil, nil

	case KindExternalJoin:
		return nil, ErrExternalJoin

	default:
		return nil, ErrUnexpectedKind
	}
}

// Update generates a self-update commit, advancing the epoch by one,
// and returns the serialized commit plus the new epoch.
func (c *Client) Update() ([]byte, uint64, error) {
	if c.group == nil || c.group.OnlyContact == nil {
		return nil, 0, ErrNoGroup
	}

	// Clear any pending update proposal from the peer; the commit does
	// not carry it and it is not applied.
	c.group.OnlyContact.PendingUpdateProposal = nil

	nextEpoch := c.group.Epoch + 1
	newSecret, err := advanceEpochSecret(c.group.EpochSecret, nextEpoch)
	if err != nil {
		return nil, 0, err
	}

	// The commit is framed in the epoch it is sent from, so the peer's
	// epoch check accepts it before it advances.
	sig := ed25519.Sign(c.identity.sigPriv, commitSignedPayload(c.group.GroupName, c.group.Epoch))

	msg := GroupMessage{
		GroupName:  c.group.GroupName,
		Epoch:      c.group.Epoch,
		Sender:     c.identity.ID,
		Kind:       KindCommit,
		AAD:        c.group.aad(),
		Commit:     &CommitBody{Signature: sig},
		Recipients: [][]byte{c.group.OnlyContact.KeyPackage.Identity},
	}
	wire, err := marshalGroupMessage(msg)
	if err != nil {
		return nil, 0, err
	}

	c.group.Epoch = nextEpoch
	c.group.EpochSecret = newSecret

	return wire, nextEpoch, nil
}

// UpdateProposal generates a proposal-only message the peer can use to
// signal liveness without forcing a commit.
func (c *Client) UpdateProposal() ([]byte, error) {
	if c.group == nil || c.group.OnlyContact == nil {
		return nil, ErrNoGroup
	}
	ts := c.nowUnix()
	sig := ed25519.Sign(c.identity.sigPriv, proposalSignedPayload(c.group.GroupName, c.group.Epoch, ts))
	prop := &Proposal{Timestamp: ts, Signature: sig}

	msg := GroupMessage{
		GroupName:  c.group.GroupName,
		Epoch:      c.group.Epoch,
		Sender:     c.identity.ID,
		Kind:       KindProposal,
		AAD:        c.group.aad(),
		Proposal:   prop,
		Recipients: [][]byte{c.group.OnlyContact.KeyPackage.Identity},
	}
	return marshalGroupMessage(msg)
}

func (c *Client) verifyCommitSignature(msg *GroupMessage) error {
	payload := commitSignedPayload(msg.GroupName, msg.Epoch)
	if !ed25519.Verify(c.group.OnlyContact.KeyPackage.SigPub, payload, msg.Commit.Signature) {
		return ErrInvalidCiphertext
	}
	return nil
}

func (c *Client) verifyProposalSignature(msg *GroupMessage) error {
	if msg.Proposal == nil {
		return ErrInvalidCiphertext
	}
	payload := proposalSignedPayload(msg.GroupName, msg.Epoch, msg.Proposal.Timestamp)
	if !ed25519.Verify(c.group.OnlyContact.KeyPackage.SigPub, payload, msg.Proposal.Signature) {
		return ErrInvalidCiphertext
	}
	return nil
}

func commitSignedPayload(groupName string, epoch uint64) []byte {
	return []byte(fmt.Sprintf("%s|commit|%d", groupName, epoch))
}

func proposalSignedPayload(groupName string, epoch uint64, ts int64) []byte {
	return []byte(fmt.Sprintf("%s|proposal|%d|%d", groupName, epoch, ts))
}

// GetEpoch returns the group's current epoch.
func (c *Client) GetEpoch() uint64 {
	if c.group == nil {
		return 0
	}
	return c.group.Epoch
}

// OfflinePeriod returns seconds since the peer's last observed activity.
func (c *Client) OfflinePeriod() int64 {
	if c.group == nil || c.group.OnlyContact == nil {
		return 0
	}
	return c.group.OnlyContact.OfflinePeriod(c.nowUnix())
}

// GetGroupName returns the shared, non-confidential group-name token.
func (c *Client) GetGroupName() (string, error) {
	if c.group == nil {
		return "", ErrNoGroup
	}
	return c.group.GroupName, nil
}

// HasContact reports whether the group already has its one peer.
func (c *Client) HasContact() bool {
	return c.group != nil && c.group.OnlyContact != nil
}

// IdentityBytes returns the client's own identity bytes.
func (c *Client) IdentityBytes() []byte {
	return c.identity.ID
}

// SaveGroupState persists the group helper state and the identity
// keystore under the nanosecond-timestamp naming scheme of spec.md
// section 3.
func (c *Client) SaveGroupState() error {
	if err := c.saveKeyStore(); err != nil {
		return err
	}
	if c.group == nil {
		return nil
	}
	data, err := c.group.marshal()
	if err != nil {
		return fmt.Errorf("mls: marshal group state: %w", err)
	}
	if _, err := saveState(c.stateDir, gsName(c.tag), data); err != nil {
		return fmt.Errorf("mls: save group state: %w", err)
	}
	return nil
}

func (c *Client) saveKeyStore() error {
	data, err := c.identity.marshal()
	if err != nil {
		return fmt.Errorf("mls: marshal key store: %w", err)
	}
	if _, err := saveState(c.stateDir, ksName(c.tag), data); err != nil {
		return fmt.Errorf("mls: save key store: %w", err)
	}
	return nil
}

// Clean deletes all persistent state for this client's tag.
func (c *Client) Clean() error {
	if err := cleanState(c.stateDir, ksName(c.tag)); err != nil {
		return err
	}
	return cleanState(c.stateDir, gsName(c.tag))
}

func ksName(tag subchannel.Tag) string {
	return keyStorePrefix + "_" + tag.String()
}

func gsName(tag subchannel.Tag) string {
	return groupStatePrefix + "_" + tag.String()
}
