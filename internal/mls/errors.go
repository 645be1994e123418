package mls

import "errors"

// Cryptographic failures are non-retryable per spec.md section 4.1
// "Failure semantics": operator is advised to re-pair the channel.
var ErrInvalidCiphertext = errors.New("mls: invalid ciphertext")

// Epoch mismatches are recoverable: the caller may drain other pending
// traffic and retry.
var ErrInvalidEpoch = errors.New("mls: epoch mismatch")

var (
	ErrNoGroup            = errors.New("mls: client has no group loaded")
	ErrGroupAlreadyLoaded = errors.New("mls: group already loaded")
	ErrAlreadyHasContact  = errors.New("mls: group already has a contact")
	ErrBadSecretLength    = errors.New("mls: external secret has wrong length")
	ErrUnexpectedSender   = errors.New("mls: sender is not the group's only contact")
	ErrUnexpectedKind     = errors.New("mls: unexpected message content kind")
	ErrRejectedCommit     = errors.New("mls: commit carries disallowed proposals")
	ErrExternalJoin       = errors.New("mls: external-join proposals are always rejected")
	ErrBadWelcome         = errors.New("mls: malformed or unverifiable welcome message")
	ErrWrongMemberCount   = errors.New("mls: group must have exactly two members")
)
