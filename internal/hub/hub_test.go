package hub

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/secluso/secluso/internal/appclient"
	"github.com/secluso/secluso/internal/camera"
	"github.com/secluso/secluso/internal/heartbeat"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/monitor"
	"github.com/secluso/secluso/internal/subchannel"
	"github.com/secluso/secluso/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairedClients(t *testing.T, tag subchannel.Tag) (camSide, appSide *mls.Client) {
	t.Helper()

	camSide, err := mls.New(t.TempDir(), tag)
	require.NoError(t, err)
	appSide, err = mls.New(t.TempDir(), tag)
	require.NoError(t, err)

	require.NoError(t, camSide.CreateGroup("0123456789abcdef"))

	secret := make([]byte, mls.NumSecretBytes)
	for i := range secret {
		secret[i] = byte(i)
	}

	welcome, err := camSide.Invite(appSide.KeyPackages()[0], secret)
	require.NoError(t, err)
	require.NoError(t, appSide.ProcessWelcome(camSide.IdentityBytes(), welcome, secret, "0123456789abcdef"))

	return camSide, appSide
}

func TestCaptureAndFlushMotionVideoRoundTripsThroughApp(t *testing.T) {
	camMotion, appMotion := pairedClients(t, subchannel.Motion)

	videoDir := t.TempDir()
	encryptedDir := t.TempDir()

	backend := camera.NewIPCamera("front-door", t.TempDir(), videoDir, t.TempDir(), "rtsp://example",
		nil,
		func(info monitor.VideoInfo, duration time.Duration, rtsp string) error {
			return os.WriteFile(filepath.Join(videoDir, info.Filename()), []byte("motion-clip-bytes"), 0o600)
		},
		nil)

	mon, err := monitor.New(t.TempDir(), videoDir, encryptedDir, t.TempDir())
	require.NoError(t, err)

	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		uploaded = body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pending":1}`))
	}))
	defer srv.Close()

	ds := transport.New(srv.URL, "user", "pass")
	h := New(backend, [subchannel.Count]*mls.Client{subchannel.Motion: camMotion}, mon, ds, "cam1", encryptedDir)

	info, err := h.CaptureAndQueueMotionVideo(555, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(555), info.Timestamp)

	require.NoError(t, h.FlushMotionQueue(context.Background()))
	assert.NotEmpty(t, uploaded)
	assert.Empty(t, mon.VideosToSend())

	videoInfo, video, err := appclient.DecryptMotionVideo(appMotion, uploaded)
	require.NoError(t, err)
	assert.Equal(t, int64(555), videoInfo.Timestamp)
	assert.Equal(t, []byte("motion-clip-bytes"), video)
}

func TestNotifyFCMSendsEncryptedTimestampOverDistinctChannel(t *testing.T) {
	camFcm, appFcm := pairedClients(t, subchannel.Fcm)

	var notified [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		notified = append(notified, body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ds := transport.New(srv.URL, "user", "pass")
	h := New(camera.NewIPCamera("front-door", t.TempDir(), t.TempDir(), t.TempDir(), "", nil, nil, nil),
		[subchannel.Count]*mls.Client{subchannel.Fcm: camFcm}, nil, ds, "cam1", t.TempDir())

	require.NoError(t, h.NotifyMotionDetected(context.Background(), 12345))
	require.NoError(t, h.NotifyDownloadReady(context.Background()))
	require.Len(t, notified, 2)

	plaintext, err := appFcm.Decrypt(notified[0], true)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), binary.BigEndian.Uint64(plaintext))

	plaintext, err = appFcm.Decrypt(notified[1], true)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), binary.BigEndian.Uint64(plaintext))
}

// TestRespondHeartbeatGCsThumbnailPendingListAtRealEpoch guards against
// regressing ProcessHeartbeat back to a hardcoded thumbnail epoch of 0:
// with a real, non-zero thumbnail epoch reported, a pending thumbnail at
// or below that epoch must be collected.
func TestRespondHeartbeatGCsThumbnailPendingListAtRealEpoch(t *testing.T) {
	camMotion, _ := pairedClients(t, subchannel.Motion)
	camThumb, _ := pairedClients(t, subchannel.Thumbnail)
	camConfig, appConfig := pairedClients(t, subchannel.Config)

	_, newEpoch, err := camThumb.Update()
	require.NoError(t, err)
	require.Equal(t, uint64(2), newEpoch)

	thumbnailDir := t.TempDir()
	thumbFile := filepath.Join(thumbnailDir, monitor.ThumbnailMetaInfo{Timestamp: 42}.Filename())
	require.NoError(t, os.WriteFile(thumbFile, []byte("thumb-bytes"), 0o600))

	mon, err := monitor.New(t.TempDir(), t.TempDir(), t.TempDir(), thumbnailDir)
	require.NoError(t, err)
	require.NoError(t, mon.EnqueueThumbnail(monitor.ThumbnailMetaInfo{Timestamp: 42, Epoch: 1}))
	require.Len(t, mon.ThumbnailsToSend(), 1)

	var clients [subchannel.Count]*mls.Client
	clients[subchannel.Motion] = camMotion
	clients[subchannel.Thumbnail] = camThumb
	clients[subchannel.Config] = camConfig

	req := heartbeat.NewRequest(1000, camMotion.GetEpoch())
	reqPlain, err := req.Marshal()
	require.NoError(t, err)
	reqCipher, err := appConfig.Encrypt(reqPlain)
	require.NoError(t, err)
	encodedReq := base64.StdEncoding.EncodeToString(reqCipher)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = w.Write([]byte("data: " + encodedReq + "\n\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ds := transport.New(srv.URL, "user", "pass")
	h := New(camera.NewIPCamera("front-door", t.TempDir(), t.TempDir(), t.TempDir(), "", nil, nil, nil),
		clients, mon, ds, "cam1", t.TempDir())

	require.NoError(t, h.RespondHeartbeat(context.Background()))

	assert.Empty(t, mon.ThumbnailsToSend())
	_, err = os.Stat(thumbFile)
	assert.True(t, os.IsNotExist(err))
}
