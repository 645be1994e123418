package mls

import "encoding/json"

// groupState is the serializable state of a two-member MLS-like group:
// everything process_protocol_message and encrypt/decrypt need besides
// the owning client's own identity. Modeled on the groupState struct in
// other_examples/germtb-mlsgit/internal/mls/group.go, extended with the
// AEAD send counter this ciphersuite's per-message key schedule needs.
type groupState struct {
	GroupID     []byte   `json:"group_id"`
	GroupName   string   `json:"group_name"`
	Epoch       uint64   `json:"epoch"`
	EpochSecret []byte   `json:"epoch_secret"`
	OnlyContact *Contact `json:"only_contact,omitempty"`
	SendCounter uint64   `json:"send_counter"`
}

func (g *groupState) marshal() ([]byte, error) {
	return json.Marshal(g)
}

func unmarshalGroupState(data []byte) (*groupState, error) {
	var g groupState
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (g *groupState) aad() string {
	return g.GroupName + " AAD"
}
