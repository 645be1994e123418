package appclient

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/secluso/secluso/internal/framing"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/subchannel"
)

// DecryptMotionVideo decodes a motion video file's record stream and
// decrypts it into the plaintext fMP4 bytes, per spec.md section 4.2:
// a leading self-update commit, a VideoNetInfo application message, then
// exactly NumMsg chunk messages with strictly increasing counters. A
// counter gap aborts the whole video (invariant FR-1): its partial
// plaintext is never returned.
func DecryptMotionVideo(client *mls.Client, raw []byte) (framing.VideoNetInfo, []byte, error) {
	records, err := framing.ReadAllRecords(bytes.NewReader(raw))
	if err != nil {
		return framing.VideoNetInfo{}, nil, fmt.Errorf("appclient: read video records: %w", err)
	}
	if len(records) < 2 {
		return framing.VideoNetInfo{}, nil, fmt.Errorf("appclient: video file has only %d records", len(records))
	}

	if _, err := client.Decrypt(records[0], false); err != nil {
		return framing.VideoNetInfo{}, nil, fmt.Errorf("appclient: decrypt self-update commit: %w", err)
	}

	infoPlain, err := client.Decrypt(records[1], true)
	if err != nil {
		return framing.VideoNetInfo{}, nil, fmt.Errorf("appclient: decrypt video net info: %w", err)
	}
	info, err := framing.ParseVideoNetInfo(infoPlain)
	if err != nil {
		return framing.VideoNetInfo{}, nil, fmt.Errorf("appclient: parse video net info: %w", err)
	}

	chunks := records[2:]
	if uint32(len(chunks)) != info.NumMsg {
		return info, nil, ErrChunkCountMismatch
	}

	assembler := framing.NewAssembler(info.NumMsg)
	for _, rec := range chunks {
		plain, err := client.Decrypt(rec, true)
		if err != nil {
			return info, nil, fmt.Errorf("appclient: decrypt video chunk: %w", err)
		}
		if !assembler.Add(plain) {
			return info, nil, ErrIncompleteVideo
		}
	}
	if !assembler.Complete() {
		return info, nil, ErrIncompleteVideo
	}
	return info, assembler.Bytes(), nil
}

// FetchMotionVideo downloads, decrypts, and saves one motion video from
// the delivery service into videoDir, named by the timestamp carried
// inside the video itself rather than the DS-supplied file name
// (spec.md section 3). Returns ErrDuplicateVideo, without rewriting the
// file, when that timestamp was already saved — the DS is free to keep
// serving an upload the app has already acknowledged until it expires.
func (a *App) FetchMotionVideo(ctx context.Context, filename, videoDir string) (string, error) {
	client, err := a.client(subchannel.Motion)
	if err != nil {
		return "", err
	}

	raw, err := a.DS.FetchMotion(ctx, a.Camera, filename)
	if err != nil {
		return "", fmt.Errorf("appclient: fetch motion video %s: %w", filename, err)
	}

	info, video, err := DecryptMotionVideo(client, raw)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(videoDir, framing.VideoFilename(info.Timestamp))
	if _, err := os.Stat(outPath); err == nil {
		return outPath, ErrDuplicateVideo
	}
	if err := os.WriteFile(outPath, video, 0o600); err != nil {
		return "", fmt.Errorf("appclient: save motion video: %w", err)
	}
	return outPath, nil
}
