package mls

// ContentKind distinguishes the MLS message body types dispatched by
// process_protocol_message per spec.md section 4.1.
type ContentKind string

const (
	KindApplication   ContentKind = "application"
	KindProposal      ContentKind = "proposal"
	KindCommit        ContentKind = "commit"
	KindWelcome       ContentKind = "welcome"
	KindExternalJoin  ContentKind = "external_join"
	KindPublicMessage ContentKind = "public"
)

// GroupMessage is the wire envelope for every non-Welcome message
// exchanged over a sub-channel: a framed body plus the recipient list
// containing only the peer, per spec.md section 4.1 "encrypt".
type GroupMessage struct {
	GroupName  string      `json:"group_name"`
	Epoch      uint64      `json:"epoch"`
	Sender     []byte      `json:"sender"`
	Kind       ContentKind `json:"kind"`
	Counter    uint64      `json:"counter,omitempty"`
	AAD        string      `json:"aad"`
	Ciphertext []byte      `json:"ciphertext,omitempty"`
	Commit     *CommitBody `json:"commit,omitempty"`
	Proposal   *Proposal   `json:"proposal,omitempty"`
	Recipients [][]byte    `json:"recipients"`
}

// CommitBody describes a staged commit. ExtraProposals lists any
// queued-proposal kinds bundled into the commit besides the sender's own
// self-update; spec.md section 4.1 step 5 rejects any Add, Remove, PSK,
// External-Join, or more than one queued update proposal, so a
// conforming commit always has ExtraProposals empty. The Signature
// authenticates (GroupName, epoch, "commit") under the sender's
// credential; a receiver who already knows the prior epoch secret
// recomputes the next one independently via advanceEpochSecret and only
// needs the signature to authenticate that a commit happened at all.
type CommitBody struct {
	ExtraProposals []string `json:"extra_proposals,omitempty"`
	Signature      []byte   `json:"signature"`
}

// Proposal is a control message that signals liveness (update_proposal)
// without forcing a commit. Its Signature authenticates (GroupName,
// Epoch, "proposal", Timestamp) under the sender's credential.
type Proposal struct {
	Timestamp int64  `json:"timestamp"`
	Signature []byte `json:"signature"`
}

// Welcome is the handshake artifact letting an invitee join a
// two-member group. SealedEpochSecret is nonce||ciphertext: the epoch
// secret sealed under a key derived from the X25519 DH between inviter
// and invitee plus the external PSK, so that process_welcome fails
// outright (MLS-3) if the invitee's secret does not match the
// inviter's.
type Welcome struct {
	GroupID           []byte     `json:"group_id"`
	GroupName         string     `json:"group_name"`
	Epoch             uint64     `json:"epoch"`
	InviterKeyPackage KeyPackage `json:"inviter_key_package"`
	InviteeKeyPackage KeyPackage `json:"invitee_key_package"`
	SealedEpochSecret []byte     `json:"sealed_epoch_secret"`
}
