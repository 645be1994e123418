package statefile

import "errors"

// ErrNotFound is returned by Load when no file matches the prefix.
var ErrNotFound = errors.New("statefile: no matching state file")

// ErrCorrupt is returned by Load when every candidate file failed to
// decode. Per spec.md section 7.5, hub callers are expected to panic on
// this so the supervisor restarts the process.
var ErrCorrupt = errors.New("statefile: all candidates failed to decode")
