package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/secluso/secluso/internal/statefile"
)

const statePrefix = "delivery_monitor"

// Monitor is the camera hub's durable queue and acknowledgement
// tracker. It lives only on the camera hub (spec.md section 4.3).
//
// watch_list drives retry of uploads: the plaintext file under videoDir
// is the source of truth on disk. pending_list drives retention across
// the re-pairing / app-reinstall boundary: even after a successful
// upload, the camera keeps the plaintext until a heartbeat from the
// legitimate peer confirms consumption at that epoch.
type Monitor struct {
	mu sync.Mutex

	stateDir      string
	videoDir      string
	encryptedDir  string
	thumbnailDir  string

	VideoWatchList      map[int64]VideoInfo           `json:"video_watch_list"`
	VideoPendingList    map[uint64]VideoInfo          `json:"video_pending_list"`
	ThumbWatchList      map[int64]ThumbnailMetaInfo   `json:"thumb_watch_list"`
	ThumbPendingList    map[uint64]ThumbnailMetaInfo  `json:"thumb_pending_list"`
	PendingLivestream   [][]byte                      `json:"pending_livestream_updates"`
}

// New restores a Monitor from stateDir if persisted state already
// exists there, or creates an empty one otherwise.
func New(stateDir, videoDir, encryptedDir, thumbnailDir string) (*Monitor, error) {
	m := &Monitor{
		stateDir:         stateDir,
		videoDir:         videoDir,
		encryptedDir:     encryptedDir,
		thumbnailDir:     thumbnailDir,
		VideoWatchList:   map[int64]VideoInfo{},
		VideoPendingList: map[uint64]VideoInfo{},
		ThumbWatchList:   map[int64]ThumbnailMetaInfo{},
		ThumbPendingList: map[uint64]ThumbnailMetaInfo{},
	}

	err := statefile.Load(stateDir, statePrefix, func(data []byte) error {
		return json.Unmarshal(data, m)
	})
	if err != nil {
		if err == statefile.ErrNotFound {
			return m, nil
		}
		return nil, fmt.Errorf("monitor: load state: %w", err)
	}
	return m, nil
}

func (m *Monitor) save() error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("monitor: marshal state: %w", err)
	}
	if _, err := statefile.Save(m.stateDir, statePrefix, data); err != nil {
		return fmt.Errorf("monitor: save state: %w", err)
	}
	return nil
}

// EnqueueVideo inserts info into both the watch list and the pending
// list and persists the new state (spec.md section 4.3, enqueue_video).
func (m *Monitor) EnqueueVideo(info VideoInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VideoWatchList[info.Timestamp] = info
	m.VideoPendingList[info.Epoch] = info
	return m.save()
}

// DequeueVideo removes info from the watch list and deletes its
// encrypted file from disk; the pending-list entry remains until a
// heartbeat clears it (spec.md section 4.3, dequeue_video).
func (m *Monitor) DequeueVideo(info VideoInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.VideoWatchList, info.Timestamp)
	if err := os.Remove(m.encryptedVideoPath(info.Epoch)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("monitor: remove encrypted video: %w", err)
	}
	return m.save()
}

// EnqueueThumbnail mirrors EnqueueVideo for thumbnails.
func (m *Monitor) EnqueueThumbnail(info ThumbnailMetaInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ThumbWatchList[info.Timestamp] = info
	m.ThumbPendingList[info.Epoch] = info
	return m.save()
}

// DequeueThumbnail mirrors DequeueVideo for thumbnails.
func (m *Monitor) DequeueThumbnail(info ThumbnailMetaInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ThumbWatchList, info.Timestamp)
	if err := os.Remove(m.encryptedThumbnailPath(info.Epoch)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("monitor: remove encrypted thumbnail: %w", err)
	}
	return m.save()
}

// ProcessHeartbeat drops every pending-list entry whose epoch is less
// than or equal to the reported peer epoch and deletes the
// corresponding plaintext source file, for both videos and thumbnails
// (spec.md section 4.3, process_heartbeat; invariant DM-2).
func (m *Monitor) ProcessHeartbeat(motionEpoch, thumbnailEpoch uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for epoch, info := range m.VideoPendingList {
		if epoch <= motionEpoch {
			delete(m.VideoPendingList, epoch)
			path := filepath.Join(m.videoDir, info.Filename())
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("monitor: remove plaintext video: %w", err)
			}
		}
	}
	for epoch, info := range m.ThumbPendingList {
		if epoch <= thumbnailEpoch {
			delete(m.ThumbPendingList, epoch)
			path := filepath.Join(m.thumbnailDir, info.Filename())
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("monitor: remove plaintext thumbnail: %w", err)
			}
		}
	}
	return m.save()
}

// EnqueueLivestreamUpdate appends commit to the queue of pending
// livestream update commit messages, flushed on the next livestream
// start attempt (spec.md section 4.3, enqueue_livestream_update). The
// documented fatal-crash window is between this call committing and the
// upload that follows: if the process dies here, persistence ensures
// the update replays on the next livestream attempt.
func (m *Monitor) EnqueueLivestreamUpdate(commit []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), commit...)
	m.PendingLivestream = append(m.PendingLivestream, cp)
	return m.save()
}

// DrainLivestreamUpdates returns every pending livestream update commit
// and clears the queue, persisting the cleared state. Call this when a
// livestream upload of the queued updates has succeeded.
func (m *Monitor) DrainLivestreamUpdates() ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.PendingLivestream
	m.PendingLivestream = nil
	if err := m.save(); err != nil {
		return nil, err
	}
	return out, nil
}

// VideosToSend returns the watch list sorted ascending by timestamp
// (spec.md section 4.3, videos_to_send).
func (m *Monitor) VideosToSend() []VideoInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]VideoInfo, 0, len(m.VideoWatchList))
	for _, v := range m.VideoWatchList {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// ThumbnailsToSend mirrors VideosToSend for thumbnails.
func (m *Monitor) ThumbnailsToSend() []ThumbnailMetaInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ThumbnailMetaInfo, 0, len(m.ThumbWatchList))
	for _, v := range m.ThumbWatchList {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func (m *Monitor) encryptedVideoPath(epoch uint64) string {
	return filepath.Join(m.encryptedDir, strconv.FormatUint(epoch, 10))
}

func (m *Monitor) encryptedThumbnailPath(epoch uint64) string {
	return filepath.Join(m.encryptedDir, "thumb_"+strconv.FormatUint(epoch, 10))
}
