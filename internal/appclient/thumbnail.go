package appclient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/secluso/secluso/internal/framing"
	"github.com/secluso/secluso/internal/subchannel"
)

// FetchThumbnail downloads, decrypts, and saves one motion thumbnail.
// Thumbnails share the motion video's wire framing — a self-update
// commit, a VideoNetInfo header, then chunk messages — over their own
// sub-channel and their own slot in the DS's per-camera file queue.
func (a *App) FetchThumbnail(ctx context.Context, filename, thumbnailDir string) (string, error) {
	client, err := a.client(subchannel.Thumbnail)
	if err != nil {
		return "", err
	}

	raw, err := a.DS.FetchMotion(ctx, a.Camera, filename)
	if err != nil {
		return "", fmt.Errorf("appclient: fetch thumbnail %s: %w", filename, err)
	}

	info, thumb, err := DecryptMotionVideo(client, raw)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(thumbnailDir, framing.VideoFilename(info.Timestamp))
	if _, err := os.Stat(outPath); err == nil {
		return outPath, ErrDuplicateVideo
	}
	if err := os.WriteFile(outPath, thumb, 0o600); err != nil {
		return "", fmt.Errorf("appclient: save thumbnail: %w", err)
	}
	return outPath, nil
}
