package hub

import (
	"fmt"

	"github.com/secluso/secluso/internal/statefile"
)

const firstTimeDonePrefix = "first_time_done"

// FirstTimeDone reports whether stateDir already carries a
// first_time_done marker — i.e. whether this hub completed its initial
// pairing in some earlier run (spec.md section 6 filesystem layout).
func FirstTimeDone(stateDir string) (bool, error) {
	err := statefile.Load(stateDir, firstTimeDonePrefix, func([]byte) error { return nil })
	if err == nil {
		return true, nil
	}
	if err == statefile.ErrNotFound {
		return false, nil
	}
	return false, fmt.Errorf("hub: check first_time_done: %w", err)
}

// MarkFirstTimeDone writes the first_time_done marker, so a later
// restart skips straight to normal operation instead of re-running the
// one-time post-pairing steps (spec.md section 7, "first-connection
// behavior").
func MarkFirstTimeDone(stateDir string) error {
	if _, err := statefile.Save(stateDir, firstTimeDonePrefix, []byte("1")); err != nil {
		return fmt.Errorf("hub: mark first_time_done: %w", err)
	}
	return nil
}
