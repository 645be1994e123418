package camera

import (
	"testing"
	"time"

	"github.com/secluso/secluso/internal/monitor"
	"github.com/stretchr/testify/assert"
)

var (
	_ Backend = (*IPCamera)(nil)
	_ Backend = (*RaspberryPiCamera)(nil)
)

func TestIPCameraHasNoWifiProvisioning(t *testing.T) {
	cam := NewIPCamera("front-door", "", "", "", "rtsp://example", nil, nil, nil)
	assert.False(t, cam.SupportsWifiProvisioning())
	assert.Equal(t, "front-door", cam.Name())

	_, err := cam.IsThereMotion()
	assert.ErrorIs(t, err, ErrNotImplemented)

	err = cam.RecordMotionVideo(monitor.VideoInfo{Timestamp: 1, Epoch: 0}, time.Second)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestRaspberryPiCameraSupportsWifiProvisioning(t *testing.T) {
	cam := NewRaspberryPiCamera("backyard", "", "", "", nil, nil, nil)
	assert.True(t, cam.SupportsWifiProvisioning())
	assert.Equal(t, "backyard", cam.Name())
}

func TestIPCameraDelegatesToCollaborators(t *testing.T) {
	called := false
	cam := NewIPCamera("front-door", "", "", "", "rtsp://example",
		func() (MotionResult, error) { called = true; return MotionResult{Detected: true}, nil },
		nil, nil)

	result, err := cam.IsThereMotion()
	assert.NoError(t, err)
	assert.True(t, called)
	assert.True(t, result.Detected)
}
