package appclient

import (
	"context"
	"fmt"

	"github.com/secluso/secluso/internal/heartbeat"
	"github.com/secluso/secluso/internal/subchannel"
)

// SendHeartbeat runs one app-to-camera heartbeat round trip over the
// config sub-channel (spec.md section 4.6): encrypt and send a request
// carrying the app's last-known motion epoch, wait for the camera's
// response, classify it, and feed the classification into the app's
// heartbeat.Monitor. A response that fails to decrypt classifies as
// heartbeat.InvalidCiphertext rather than returning an error, since
// that outcome is itself part of the liveness signal.
func (a *App) SendHeartbeat(ctx context.Context, timestamp, motionEpoch uint64) (heartbeat.Result, bool, error) {
	client, err := a.client(subchannel.Config)
	if err != nil {
		return 0, false, err
	}

	req := heartbeat.NewRequest(timestamp, motionEpoch)
	plaintext, err := req.Marshal()
	if err != nil {
		return 0, false, fmt.Errorf("appclient: marshal heartbeat request: %w", err)
	}
	ciphertext, err := client.Encrypt(plaintext)
	if err != nil {
		return 0, false, fmt.Errorf("appclient: encrypt heartbeat request: %w", err)
	}
	if err := a.DS.SendCommand(ctx, a.Camera, ciphertext); err != nil {
		return 0, false, fmt.Errorf("appclient: send heartbeat request: %w", err)
	}

	respCiphertext, err := a.DS.WaitConfigResponse(ctx, a.Camera)
	if err != nil {
		return 0, false, fmt.Errorf("appclient: wait heartbeat response: %w", err)
	}

	var resp heartbeat.Response
	respPlain, decryptErr := client.Decrypt(respCiphertext, true)
	if decryptErr == nil {
		resp, err = heartbeat.ParseResponse(respPlain)
		if err != nil {
			return 0, false, fmt.Errorf("appclient: parse heartbeat response: %w", err)
		}
	}

	result := heartbeat.Classify(req, resp, decryptErr)
	advise := a.Heartbeat.Observe(result)
	return result, advise, nil
}
