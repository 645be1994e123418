package appclient

import (
	"encoding/json"
	"fmt"

	"github.com/secluso/secluso/internal/statefile"
)

const motionEpochPrefix = "motion_epoch"

// firstMotionEpoch is the epoch a freshly paired app should start
// reporting: epoch 0 is group creation and epoch 1 is the camera's
// Invite of the app during pairing, and the camera commits a
// self-update before each motion video, so the first motion video a
// camera can have queued arrives no earlier than epoch 2.
const firstMotionEpoch = 2

type motionEpochState struct {
	Epoch uint64 `json:"epoch"`
}

// LoadMotionEpoch restores the app's last-known motion epoch from
// stateDir, defaulting to firstMotionEpoch if nothing has been
// persisted yet (spec.md section 6 filesystem layout, "motion_epoch").
func LoadMotionEpoch(stateDir string) (uint64, error) {
	var s motionEpochState
	err := statefile.Load(stateDir, motionEpochPrefix, func(data []byte) error {
		return json.Unmarshal(data, &s)
	})
	if err == nil {
		return s.Epoch, nil
	}
	if err == statefile.ErrNotFound {
		return firstMotionEpoch, nil
	}
	return 0, fmt.Errorf("appclient: load motion epoch: %w", err)
}

// SaveMotionEpoch persists the app's last-known motion epoch, called
// after each motion video is successfully fetched and decrypted so the
// next heartbeat reports progress and the camera's delivery monitor can
// garbage-collect its pending list (spec.md section 4.3, DM-2).
func SaveMotionEpoch(stateDir string, epoch uint64) error {
	data, err := json.Marshal(motionEpochState{Epoch: epoch})
	if err != nil {
		return fmt.Errorf("appclient: marshal motion epoch: %w", err)
	}
	if _, err := statefile.Save(stateDir, motionEpochPrefix, data); err != nil {
		return fmt.Errorf("appclient: save motion epoch: %w", err)
	}
	return nil
}
