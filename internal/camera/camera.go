// Package camera defines the narrow capability interface the hub's
// worker loops use to drive a physical camera, and the two backend
// variants described in spec.md's dynamic-dispatch redesign: a generic
// RTSP/IP camera and a Raspberry Pi native camera. Video capture,
// MP4/fMP4 muxing, and motion-detection inference themselves are out of
// scope (spec.md section 1); these backends expose only the interface
// the hub needs, deferring to a capture/detector collaborator.
package camera

import (
	"io"
	"time"

	"github.com/secluso/secluso/internal/monitor"
)

// MotionResult is what IsThereMotion reports back to the hub's motion
// worker loop.
type MotionResult struct {
	Detected bool
	Labels   []monitor.DetectionLabel
}

// Backend is the full capability set a camera variant must provide
// (spec.md section 9, "REDESIGN FLAGS": dynamic dispatch of camera
// backends collapsed to this interface — no other core component sees
// which variant is in use).
type Backend interface {
	// RecordMotionVideo captures duration worth of video for info into
	// this backend's video directory under info.Filename().
	RecordMotionVideo(info monitor.VideoInfo, duration time.Duration) error

	// LaunchLivestream starts streaming live fragmented MP4 to w,
	// running until w returns an error or the caller stops reading.
	LaunchLivestream(w io.Writer) error

	// IsThereMotion polls (or drains a queued) motion-detection result.
	IsThereMotion() (MotionResult, error)

	Name() string
	StateDir() string
	VideoDir() string
	ThumbnailDir() string

	// SupportsWifiProvisioning reports whether this backend has a radio
	// that can be configured during pairing (spec.md section 4.5.1
	// supplement). IP/RTSP cameras are assumed pre-connected over
	// Ethernet or an existing Wi-Fi association; only headless
	// Raspberry Pi hubs provision Wi-Fi during pairing.
	SupportsWifiProvisioning() bool
}
