package hub

import (
	"context"
	"fmt"

	"github.com/secluso/secluso/internal/heartbeat"
	"github.com/secluso/secluso/internal/subchannel"
)

// RespondHeartbeat blocks until the app sends a heartbeat request on
// the config sub-channel, then answers it: the response echoes the
// request's timestamp and reports this hub's current motion and
// thumbnail epochs, and receiving the request also drives
// Monitor.ProcessHeartbeat so acknowledged media can be dropped
// (spec.md section 4.6, section 4.3 process_heartbeat).
func (h *Hub) RespondHeartbeat(ctx context.Context) error {
	client, err := h.client(subchannel.Config)
	if err != nil {
		return err
	}

	wire, err := h.DS.WaitCommand(ctx, h.GroupName)
	if err != nil {
		return fmt.Errorf("hub: wait heartbeat request: %w", err)
	}
	plain, err := client.Decrypt(wire, true)
	if err != nil {
		return fmt.Errorf("hub: decrypt heartbeat request: %w", err)
	}
	req, err := heartbeat.ParseRequest(plain)
	if err != nil {
		return fmt.Errorf("hub: parse heartbeat request: %w", err)
	}

	motionEpoch, thumbnailEpoch, err := h.currentEpochs()
	if err != nil {
		return err
	}

	if err := h.Monitor.ProcessHeartbeat(req.MotionEpoch, thumbnailEpoch); err != nil {
		return fmt.Errorf("hub: process heartbeat: %w", err)
	}

	resp := heartbeat.NewResponse(req.Timestamp, motionEpoch, thumbnailEpoch)
	respPlain, err := resp.Marshal()
	if err != nil {
		return err
	}
	respCipher, err := client.Encrypt(respPlain)
	if err != nil {
		return fmt.Errorf("hub: encrypt heartbeat response: %w", err)
	}
	if err := h.DS.SendConfigResponse(ctx, h.GroupName, respCipher); err != nil {
		return fmt.Errorf("hub: send heartbeat response: %w", err)
	}
	return nil
}
