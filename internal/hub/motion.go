package hub

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/secluso/secluso/internal/framing"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/monitor"
	"github.com/secluso/secluso/internal/subchannel"
)

// encryptMotionVideo self-updates client, frames plaintext as a
// VideoNetInfo header plus fixed-size chunks, and seals every message,
// producing the record stream spec.md section 4.2 describes as "the
// video file on DS": a leading commit, then the header, then the
// chunks, each length-prefixed.
func encryptMotionVideo(client *mls.Client, timestamp int64, plaintext []byte) (records []byte, epoch uint64, err error) {
	commit, epoch, err := client.Update()
	if err != nil {
		return nil, 0, fmt.Errorf("hub: self-update: %w", err)
	}

	numMsg := (len(plaintext) + motionChunkSize - 1) / motionChunkSize
	if numMsg == 0 {
		numMsg = 1
	}
	info := framing.NewVideoNetInfo(timestamp, uint32(numMsg))
	infoPlain, err := info.Marshal()
	if err != nil {
		return nil, 0, err
	}
	infoCipher, err := client.Encrypt(infoPlain)
	if err != nil {
		return nil, 0, fmt.Errorf("hub: encrypt video net info: %w", err)
	}

	var buf appendBuf
	if err := framing.WriteRecord(&buf, commit); err != nil {
		return nil, 0, err
	}
	if err := framing.WriteRecord(&buf, infoCipher); err != nil {
		return nil, 0, err
	}

	for i := 0; i < numMsg; i++ {
		start := i * motionChunkSize
		end := start + motionChunkSize
		if end > len(plaintext) {
			end = len(plaintext)
		}
		chunkPlain := framing.EncodeChunk(uint64(i), plaintext[start:end])
		chunkCipher, err := client.Encrypt(chunkPlain)
		if err != nil {
			return nil, 0, fmt.Errorf("hub: encrypt video chunk %d: %w", i, err)
		}
		if err := framing.WriteRecord(&buf, chunkCipher); err != nil {
			return nil, 0, err
		}
	}

	return buf.b, epoch, nil
}

type appendBuf struct{ b []byte }

func (a *appendBuf) Write(p []byte) (int, error) {
	a.b = append(a.b, p...)
	return len(p), nil
}

// CaptureAndQueueMotionVideo records motionDuration of video for a
// detected motion event, encrypts it, persists the encrypted record
// stream to disk, enqueues it in the delivery monitor, and returns the
// VideoInfo now tracked for retry. Upload to the delivery service
// itself happens separately via FlushMotionQueue so a crash between
// these two steps simply replays the upload (spec.md section 4.3).
func (h *Hub) CaptureAndQueueMotionVideo(timestamp int64, motionDuration time.Duration) (monitor.VideoInfo, error) {
	info := monitor.VideoInfo{Timestamp: timestamp}

	if err := h.Backend.RecordMotionVideo(info, motionDuration); err != nil {
		return monitor.VideoInfo{}, fmt.Errorf("hub: record motion video: %w", err)
	}
	plaintext, err := os.ReadFile(filepath.Join(h.Backend.VideoDir(), info.Filename()))
	if err != nil {
		return monitor.VideoInfo{}, fmt.Errorf("hub: read captured video: %w", err)
	}

	client, err := h.client(subchannel.Motion)
	if err != nil {
		return monitor.VideoInfo{}, err
	}
	records, epoch, err := encryptMotionVideo(client, timestamp, plaintext)
	if err != nil {
		return monitor.VideoInfo{}, err
	}
	info.Epoch = epoch

	if err := os.WriteFile(h.encryptedVideoPath(epoch), records, 0o600); err != nil {
		return monitor.VideoInfo{}, fmt.Errorf("hub: persist encrypted video: %w", err)
	}
	if err := h.Monitor.EnqueueVideo(info); err != nil {
		return monitor.VideoInfo{}, fmt.Errorf("hub: enqueue video: %w", err)
	}
	return info, nil
}

func (h *Hub) encryptedVideoPath(epoch uint64) string {
	return filepath.Join(h.encryptedDir, strconv.FormatUint(epoch, 10))
}

// FlushMotionQueue uploads every video currently on the watch list,
// oldest first, removing each from the queue once the delivery service
// accepts it (spec.md section 4.3, videos_to_send / dequeue_video). It
// stops at the first upload failure so later videos are retried, in
// order, on the next call.
func (h *Hub) FlushMotionQueue(ctx context.Context) error {
	for _, info := range h.Monitor.VideosToSend() {
		records, err := os.ReadFile(h.encryptedVideoPath(info.Epoch))
		if err != nil {
			return fmt.Errorf("hub: read encrypted video for upload: %w", err)
		}
		remoteName := strconv.FormatUint(info.Epoch, 10)
		if _, err := h.DS.UploadMotion(ctx, h.GroupName, remoteName, records); err != nil {
			return fmt.Errorf("hub: upload motion video: %w", err)
		}
		if err := h.Monitor.DequeueVideo(info); err != nil {
			return fmt.Errorf("hub: dequeue motion video: %w", err)
		}
	}
	return nil
}
