// Package framing implements the binary framing used to chunk and
// authenticate video streams over a sub-channel, per spec.md section
// 4.2, plus the separate length-prefixed framing used on the direct
// pairing TCP connection.
package framing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// sanity is the fixed sentinel VideoNetInfo must carry; spec.md section
// 3 calls this "a fixed sentinel", so any other value is a fatal
// validation error.
const sanity = "SECLUSO_VIDEO_SANITY_V1"

// ErrBadSanity is returned when a VideoNetInfo's sentinel does not
// match, per spec.md section 3.
var ErrBadSanity = errors.New("framing: video net info sanity mismatch")

// ErrZeroMessages is returned when num_msg is zero.
var ErrZeroMessages = errors.New("framing: video net info declares zero chunk messages")

// ErrOutOfOrderChunk is returned when a received chunk's embedded
// counter does not match the next expected value.
var ErrOutOfOrderChunk = errors.New("framing: chunk counter out of order")

// VideoNetInfo is the second framed application message after a
// self-update commit, per spec.md section 4.2 step 2. Timestamp is the
// source of truth for the output filename, never the DS-supplied path.
type VideoNetInfo struct {
	Sanity    string `json:"sanity"`
	Timestamp int64  `json:"timestamp"`
	NumMsg    uint32 `json:"num_msg"`
}

// NewVideoNetInfo builds a VideoNetInfo with the sentinel already set.
func NewVideoNetInfo(timestamp int64, numMsg uint32) VideoNetInfo {
	return VideoNetInfo{Sanity: sanity, Timestamp: timestamp, NumMsg: numMsg}
}

// Marshal serializes a VideoNetInfo for transmission as an application
// message plaintext.
func (v VideoNetInfo) Marshal() ([]byte, error) {
	return json.Marshal(v)
}

// ParseVideoNetInfo deserializes and validates a VideoNetInfo per
// spec.md section 3: a bad sanity or num_msg == 0 is a fatal validation
// error.
func ParseVideoNetInfo(data []byte) (VideoNetInfo, error) {
	var v VideoNetInfo
	if err := json.Unmarshal(data, &v); err != nil {
		return VideoNetInfo{}, fmt.Errorf("framing: unmarshal video net info: %w", err)
	}
	if v.Sanity != sanity {
		return VideoNetInfo{}, ErrBadSanity
	}
	if v.NumMsg == 0 {
		return VideoNetInfo{}, ErrZeroMessages
	}
	return v, nil
}

// VideoFilename derives the canonical on-disk filename from the
// timestamp carried inside VideoNetInfo, never from the attacker
// controlled filename the DS reports.
func VideoFilename(timestamp int64) string {
	return fmt.Sprintf("video_%d.mp4", timestamp)
}
