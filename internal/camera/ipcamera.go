package camera

import (
	"errors"
	"io"
	"time"

	"github.com/secluso/secluso/internal/monitor"
)

// ErrNotImplemented marks capture/detection surfaces this module
// deliberately stubs out (spec.md section 1 lists video capture,
// MP4/fMP4 muxing, and motion-detection inference as out of scope;
// these hooks exist so the hub's worker loops have something real to
// call, grounded on the original IpCamera backend's method shapes).
var ErrNotImplemented = errors.New("camera: not implemented in this build")

// IPCamera drives a generic RTSP-speaking IP camera over the LAN. It
// has no Wi-Fi radio of its own to provision during pairing.
type IPCamera struct {
	name          string
	stateDir      string
	videoDir      string
	thumbnailDir  string
	rtspURL       string
	detectMotion  func() (MotionResult, error)
	captureVideo  func(monitor.VideoInfo, time.Duration, string) error
	streamFragMP4 func(io.Writer, string) error
}

// NewIPCamera constructs an IPCamera backend. detectMotion, captureVideo,
// and streamFragMP4 are the capture/detection collaborators (spec.md
// section 1, "deliberately out of scope"); pass nil to get a backend
// whose capture methods return ErrNotImplemented, useful for wiring
// tests that only exercise the delivery pipeline around it.
func NewIPCamera(name, stateDir, videoDir, thumbnailDir, rtspURL string,
	detectMotion func() (MotionResult, error),
	captureVideo func(monitor.VideoInfo, time.Duration, string) error,
	streamFragMP4 func(io.Writer, string) error,
) *IPCamera {
	return &IPCamera{
		name:          name,
		stateDir:      stateDir,
		videoDir:      videoDir,
		thumbnailDir:  thumbnailDir,
		rtspURL:       rtspURL,
		detectMotion:  detectMotion,
		captureVideo:  captureVideo,
		streamFragMP4: streamFragMP4,
	}
}

func (c *IPCamera) RecordMotionVideo(info monitor.VideoInfo, duration time.Duration) error {
	if c.captureVideo == nil {
		return ErrNotImplemented
	}
	return c.captureVideo(info, duration, c.rtspURL)
}

func (c *IPCamera) LaunchLivestream(w io.Writer) error {
	if c.streamFragMP4 == nil {
		return ErrNotImplemented
	}
	return c.streamFragMP4(w, c.rtspURL)
}

func (c *IPCamera) IsThereMotion() (MotionResult, error) {
	if c.detectMotion == nil {
		return MotionResult{}, ErrNotImplemented
	}
	return c.detectMotion()
}

func (c *IPCamera) Name() string                   { return c.name }
func (c *IPCamera) StateDir() string               { return c.stateDir }
func (c *IPCamera) VideoDir() string               { return c.videoDir }
func (c *IPCamera) ThumbnailDir() string           { return c.thumbnailDir }
func (c *IPCamera) SupportsWifiProvisioning() bool { return false }
