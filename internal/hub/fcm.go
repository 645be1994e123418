package hub

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/secluso/secluso/internal/subchannel"
)

// notifyFCM encrypts a single 8-byte big-endian timestamp over the Fcm
// sub-channel and pushes it to the delivery service. A timestamp of 0
// tells the app a video is now queued and downloadable; any other value
// is the motion event's own timestamp, sent before the video itself is
// recorded so the app can wake early.
func (h *Hub) notifyFCM(ctx context.Context, timestamp uint64) error {
	client, err := h.client(subchannel.Fcm)
	if err != nil {
		return err
	}
	plaintext := make([]byte, 8)
	binary.BigEndian.PutUint64(plaintext, timestamp)
	ciphertext, err := client.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("hub: encrypt fcm notification: %w", err)
	}
	if err := client.SaveGroupState(); err != nil {
		return fmt.Errorf("hub: save fcm group state: %w", err)
	}
	if err := h.DS.SendFCMNotification(ctx, ciphertext); err != nil {
		return fmt.Errorf("hub: send fcm notification: %w", err)
	}
	return nil
}

// NotifyMotionDetected pushes the motion event's own timestamp over the
// Fcm sub-channel, ahead of recording and uploading the video itself.
func (h *Hub) NotifyMotionDetected(ctx context.Context, timestamp int64) error {
	return h.notifyFCM(ctx, uint64(timestamp))
}

// NotifyDownloadReady pushes the sentinel timestamp 0, telling the app a
// motion video is now queued and ready to fetch.
func (h *Hub) NotifyDownloadReady(ctx context.Context) error {
	return h.notifyFCM(ctx, 0)
}
