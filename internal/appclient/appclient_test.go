package appclient

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/secluso/secluso/internal/framing"
	"github.com/secluso/secluso/internal/heartbeat"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/subchannel"
	"github.com/secluso/secluso/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairedClients(t *testing.T, tag subchannel.Tag) (camera, app *mls.Client) {
	t.Helper()

	camera, err := mls.New(t.TempDir(), tag)
	require.NoError(t, err)
	app, err = mls.New(t.TempDir(), tag)
	require.NoError(t, err)

	require.NoError(t, camera.CreateGroup("0123456789abcdef"))

	secret := make([]byte, mls.NumSecretBytes)
	for i := range secret {
		secret[i] = byte(i)
	}

	welcome, err := camera.Invite(app.KeyPackages()[0], secret)
	require.NoError(t, err)
	require.NoError(t, app.ProcessWelcome(camera.IdentityBytes(), welcome, secret, "0123456789abcdef"))

	return camera, app
}

func buildMotionRecords(t *testing.T, camera *mls.Client, timestamp int64, payloads [][]byte) []byte {
	t.Helper()

	var buf []byte
	write := func(msg []byte) {
		w := &appendWriter{}
		require.NoError(t, framing.WriteRecord(w, msg))
		buf = append(buf, w.buf...)
	}

	commit, _, err := camera.Update()
	require.NoError(t, err)
	write(commit)

	info := framing.NewVideoNetInfo(timestamp, uint32(len(payloads)))
	infoPlain, err := info.Marshal()
	require.NoError(t, err)
	infoCipher, err := camera.Encrypt(infoPlain)
	require.NoError(t, err)
	write(infoCipher)

	for i, payload := range payloads {
		chunkPlain := framing.EncodeChunk(uint64(i), payload)
		chunkCipher, err := camera.Encrypt(chunkPlain)
		require.NoError(t, err)
		write(chunkCipher)
	}

	return buf
}

type appendWriter struct{ buf []byte }

func (w *appendWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func TestDecryptMotionVideoAssemblesChunksInOrder(t *testing.T) {
	camera, app := pairedClients(t, subchannel.Motion)
	raw := buildMotionRecords(t, camera, 12345, [][]byte{[]byte("hello "), []byte("world")})

	info, video, err := DecryptMotionVideo(app, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), info.Timestamp)
	assert.Equal(t, []byte("hello world"), video)
}

func TestDecryptMotionVideoRejectsChunkCountMismatch(t *testing.T) {
	camera, app := pairedClients(t, subchannel.Motion)

	// Video net info declares two chunks but only one record follows.
	commit, _, err := camera.Update()
	require.NoError(t, err)

	info := framing.NewVideoNetInfo(1, 2)
	infoPlain, err := info.Marshal()
	require.NoError(t, err)
	infoCipher, err := camera.Encrypt(infoPlain)
	require.NoError(t, err)

	w := &appendWriter{}
	require.NoError(t, framing.WriteRecord(w, commit))
	require.NoError(t, framing.WriteRecord(w, infoCipher))
	chunkPlain := framing.EncodeChunk(0, []byte("only-one"))
	chunkCipher, err := camera.Encrypt(chunkPlain)
	require.NoError(t, err)
	require.NoError(t, framing.WriteRecord(w, chunkCipher))

	_, _, err = DecryptMotionVideo(app, w.buf)
	assert.ErrorIs(t, err, ErrChunkCountMismatch)
}

func newMotionDSServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
}

func TestFetchMotionVideoSavesUnderTimestampName(t *testing.T) {
	camera, app := pairedClients(t, subchannel.Motion)
	raw := buildMotionRecords(t, camera, 999, [][]byte{[]byte("clip-bytes")})

	srv := newMotionDSServer(t, raw)
	defer srv.Close()

	ds := transport.New(srv.URL, "user", "pass")
	a := New("cam1", ds, [subchannel.Count]*mls.Client{subchannel.Motion: app})

	videoDir := t.TempDir()
	path, err := a.FetchMotionVideo(context.Background(), "video_999.bin", videoDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(videoDir, "video_999.mp4"), path)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("clip-bytes"), saved)
}

func TestFetchMotionVideoDetectsDuplicate(t *testing.T) {
	camera, app := pairedClients(t, subchannel.Motion)
	raw := buildMotionRecords(t, camera, 1000, [][]byte{[]byte("clip-bytes")})

	srv := newMotionDSServer(t, raw)
	defer srv.Close()

	ds := transport.New(srv.URL, "user", "pass")
	a := New("cam1", ds, [subchannel.Count]*mls.Client{subchannel.Motion: app})

	videoDir := t.TempDir()
	existing := filepath.Join(videoDir, "video_1000.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("already-here"), 0o600))

	_, err := a.FetchMotionVideo(context.Background(), "video_1000.bin", videoDir)
	assert.ErrorIs(t, err, ErrDuplicateVideo)

	saved, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, []byte("already-here"), saved)
}

func TestSendHeartbeatClassifiesHealthy(t *testing.T) {
	camera, app := pairedClients(t, subchannel.Config)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/config/cam1":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/config_response/cam1":
			resp, err := heartbeatPlainResponse(t, camera, 42, 7, 0)
			require.NoError(t, err)
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = w.Write([]byte("data: " + base64.StdEncoding.EncodeToString(resp) + "\n\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ds := transport.New(srv.URL, "user", "pass")
	a := New("cam1", ds, [subchannel.Count]*mls.Client{subchannel.Config: app})

	result, advise, err := a.SendHeartbeat(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, int(result))
	assert.False(t, advise)
}

func heartbeatPlainResponse(t *testing.T, camera *mls.Client, timestamp, motionEpoch, thumbEpoch uint64) ([]byte, error) {
	t.Helper()
	resp := heartbeat.NewResponse(timestamp, motionEpoch, thumbEpoch)
	plain, err := resp.Marshal()
	require.NoError(t, err)
	return camera.Encrypt(plain)
}
