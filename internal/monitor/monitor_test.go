package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T) (*Monitor, string, string, string, string) {
	t.Helper()
	stateDir := t.TempDir()
	videoDir := t.TempDir()
	encryptedDir := t.TempDir()
	thumbnailDir := t.TempDir()

	m, err := New(stateDir, videoDir, encryptedDir, thumbnailDir)
	require.NoError(t, err)
	return m, stateDir, videoDir, encryptedDir, thumbnailDir
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

// TestEnqueueVideoPopulatesBothLists is DM-1's setup half: a video must
// land in both lists so it survives a crash before upload.
func TestEnqueueVideoPopulatesBothLists(t *testing.T) {
	m, _, _, _, _ := newTestMonitor(t)

	info := VideoInfo{Timestamp: 1000, Epoch: 5}
	require.NoError(t, m.EnqueueVideo(info))

	assert.Contains(t, m.VideoWatchList, int64(1000))
	assert.Contains(t, m.VideoPendingList, uint64(5))
}

// TestSurvivesRestart is DM-1: state persisted by one Monitor must be
// visible to a freshly constructed Monitor pointed at the same
// directories, as if the process had been killed and relaunched.
func TestSurvivesRestart(t *testing.T) {
	stateDir := t.TempDir()
	videoDir := t.TempDir()
	encryptedDir := t.TempDir()
	thumbnailDir := t.TempDir()

	m1, err := New(stateDir, videoDir, encryptedDir, thumbnailDir)
	require.NoError(t, err)
	require.NoError(t, m1.EnqueueVideo(VideoInfo{Timestamp: 42, Epoch: 1}))
	require.NoError(t, m1.EnqueueThumbnail(ThumbnailMetaInfo{Timestamp: 42, Epoch: 1, Labels: []DetectionLabel{LabelHuman}}))
	require.NoError(t, m1.EnqueueLivestreamUpdate([]byte("commit-bytes")))

	m2, err := New(stateDir, videoDir, encryptedDir, thumbnailDir)
	require.NoError(t, err)

	assert.Contains(t, m2.VideoWatchList, int64(42))
	assert.Contains(t, m2.VideoPendingList, uint64(1))
	assert.Contains(t, m2.ThumbWatchList, int64(42))
	assert.Equal(t, []DetectionLabel{LabelHuman}, m2.ThumbPendingList[1].Labels)
	updates, err := m2.DrainLivestreamUpdates()
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, []byte("commit-bytes"), updates[0])
}

// TestDequeueVideoRemovesFromWatchListOnly is DM-2's setup half: a
// successful upload clears watch_list and the encrypted file, but
// pending_list keeps the epoch until a heartbeat confirms consumption.
func TestDequeueVideoRemovesFromWatchListOnly(t *testing.T) {
	m, _, _, encryptedDir, _ := newTestMonitor(t)

	info := VideoInfo{Timestamp: 10, Epoch: 3}
	require.NoError(t, m.EnqueueVideo(info))
	touch(t, filepath.Join(encryptedDir, "3"))

	require.NoError(t, m.DequeueVideo(info))

	assert.NotContains(t, m.VideoWatchList, int64(10))
	assert.Contains(t, m.VideoPendingList, uint64(3))
	assert.NoFileExists(t, filepath.Join(encryptedDir, "3"))
}

// TestProcessHeartbeatPrunesPending is spec.md section 8 scenario 3:
// pending {5,6,7}, a heartbeat reporting epoch 6 leaves pending with
// only {7}, and the plaintext source files for epochs 5 and 6 are
// deleted from disk.
func TestProcessHeartbeatPrunesPending(t *testing.T) {
	m, _, videoDir, _, _ := newTestMonitor(t)

	for _, epoch := range []uint64{5, 6, 7} {
		info := VideoInfo{Timestamp: int64(epoch) * 100, Epoch: epoch}
		require.NoError(t, m.EnqueueVideo(info))
		touch(t, filepath.Join(videoDir, info.Filename()))
	}

	require.NoError(t, m.ProcessHeartbeat(6, 0))

	assert.NotContains(t, m.VideoPendingList, uint64(5))
	assert.NotContains(t, m.VideoPendingList, uint64(6))
	assert.Contains(t, m.VideoPendingList, uint64(7))

	assert.NoFileExists(t, filepath.Join(videoDir, "video_500.mp4"))
	assert.NoFileExists(t, filepath.Join(videoDir, "video_600.mp4"))
	assert.FileExists(t, filepath.Join(videoDir, "video_700.mp4"))
}

func TestProcessHeartbeatPrunesThumbnailsIndependently(t *testing.T) {
	m, _, _, _, thumbnailDir := newTestMonitor(t)

	for _, epoch := range []uint64{1, 2} {
		info := ThumbnailMetaInfo{Timestamp: int64(epoch) * 10, Epoch: epoch}
		require.NoError(t, m.EnqueueThumbnail(info))
		touch(t, filepath.Join(thumbnailDir, info.Filename()))
	}
	// Video epochs are far ahead; thumbnail epoch 1 alone should be pruned.
	require.NoError(t, m.ProcessHeartbeat(999, 1))

	assert.NotContains(t, m.ThumbPendingList, uint64(1))
	assert.Contains(t, m.ThumbPendingList, uint64(2))
}

func TestVideosToSendSortedByTimestamp(t *testing.T) {
	m, _, _, _, _ := newTestMonitor(t)
	require.NoError(t, m.EnqueueVideo(VideoInfo{Timestamp: 300, Epoch: 3}))
	require.NoError(t, m.EnqueueVideo(VideoInfo{Timestamp: 100, Epoch: 1}))
	require.NoError(t, m.EnqueueVideo(VideoInfo{Timestamp: 200, Epoch: 2}))

	videos := m.VideosToSend()
	require.Len(t, videos, 3)
	assert.Equal(t, []int64{100, 200, 300}, []int64{videos[0].Timestamp, videos[1].Timestamp, videos[2].Timestamp})
}

func TestEnqueueLivestreamUpdateQueuesUntilDrained(t *testing.T) {
	m, _, _, _, _ := newTestMonitor(t)
	require.NoError(t, m.EnqueueLivestreamUpdate([]byte("c1")))
	require.NoError(t, m.EnqueueLivestreamUpdate([]byte("c2")))

	updates, err := m.DrainLivestreamUpdates()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("c1"), []byte("c2")}, updates)

	updates, err = m.DrainLivestreamUpdates()
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestDequeueVideoToleratesAlreadyMissingFile(t *testing.T) {
	m, _, _, _, _ := newTestMonitor(t)
	info := VideoInfo{Timestamp: 1, Epoch: 1}
	require.NoError(t, m.EnqueueVideo(info))
	require.NoError(t, m.DequeueVideo(info))
}
