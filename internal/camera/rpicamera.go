package camera

import (
	"io"
	"time"

	"github.com/secluso/secluso/internal/monitor"
)

// RaspberryPiCamera drives a native Raspberry Pi camera module. Unlike
// IPCamera, it's a headless hub with a Wi-Fi radio that pairing can
// provision directly (spec.md section 4.5.1 supplement).
type RaspberryPiCamera struct {
	name         string
	stateDir     string
	videoDir     string
	thumbnailDir string
	detectMotion func() (MotionResult, error)
	captureVideo func(monitor.VideoInfo, time.Duration) error
	streamFMP4   func(io.Writer) error
}

// NewRaspberryPiCamera constructs a RaspberryPiCamera backend; nil
// collaborators yield a backend whose capture methods return
// ErrNotImplemented (see IPCamera's constructor doc).
func NewRaspberryPiCamera(name, stateDir, videoDir, thumbnailDir string,
	detectMotion func() (MotionResult, error),
	captureVideo func(monitor.VideoInfo, time.Duration) error,
	streamFMP4 func(io.Writer) error,
) *RaspberryPiCamera {
	return &RaspberryPiCamera{
		name:         name,
		stateDir:     stateDir,
		videoDir:     videoDir,
		thumbnailDir: thumbnailDir,
		detectMotion: detectMotion,
		captureVideo: captureVideo,
		streamFMP4:   streamFMP4,
	}
}

func (c *RaspberryPiCamera) RecordMotionVideo(info monitor.VideoInfo, duration time.Duration) error {
	if c.captureVideo == nil {
		return ErrNotImplemented
	}
	return c.captureVideo(info, duration)
}

func (c *RaspberryPiCamera) LaunchLivestream(w io.Writer) error {
	if c.streamFMP4 == nil {
		return ErrNotImplemented
	}
	return c.streamFMP4(w)
}

func (c *RaspberryPiCamera) IsThereMotion() (MotionResult, error) {
	if c.detectMotion == nil {
		return MotionResult{}, ErrNotImplemented
	}
	return c.detectMotion()
}

func (c *RaspberryPiCamera) Name() string                  { return c.name }
func (c *RaspberryPiCamera) StateDir() string              { return c.stateDir }
func (c *RaspberryPiCamera) VideoDir() string              { return c.videoDir }
func (c *RaspberryPiCamera) ThumbnailDir() string          { return c.thumbnailDir }
func (c *RaspberryPiCamera) SupportsWifiProvisioning() bool { return true }
