// Package hub implements the camera hub's half of a paired
// relationship: driving a camera.Backend, framing and encrypting its
// output over the five MLS sub-channels, and running the delivery
// monitor that tracks what still needs to reach the delivery service
// (spec.md sections 4.2, 4.3, 4.6).
package hub

import (
	"fmt"

	"github.com/secluso/secluso/internal/camera"
	"github.com/secluso/secluso/internal/heartbeat"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/monitor"
	"github.com/secluso/secluso/internal/subchannel"
	"github.com/secluso/secluso/internal/transport"
)

// motionChunkSize is how many plaintext bytes go into each encrypted
// application-message chunk when framing a motion video or thumbnail.
const motionChunkSize = 16 * 1024

// Hub is one camera's live runtime state: its backend, its five paired
// sub-channel clients, the delivery monitor tracking outstanding
// uploads, and the transport used to reach the delivery service.
type Hub struct {
	Backend   camera.Backend
	Clients   [subchannel.Count]*mls.Client
	Monitor   *monitor.Monitor
	DS        *transport.Client
	GroupName string

	encryptedDir string
}

// New builds a Hub from its already-paired components.
func New(backend camera.Backend, clients [subchannel.Count]*mls.Client, mon *monitor.Monitor, ds *transport.Client, groupName, encryptedDir string) *Hub {
	return &Hub{
		Backend:      backend,
		Clients:      clients,
		Monitor:      mon,
		DS:           ds,
		GroupName:    groupName,
		encryptedDir: encryptedDir,
	}
}

func (h *Hub) client(tag subchannel.Tag) (*mls.Client, error) {
	if !tag.Valid() {
		return nil, fmt.Errorf("hub: invalid sub-channel %d", tag)
	}
	c := h.Clients[tag]
	if c == nil {
		return nil, fmt.Errorf("hub: sub-channel %s not paired", tag)
	}
	return c, nil
}

// currentEpochs reads the motion and thumbnail sub-channels' current
// epochs, reported back to the app in every heartbeat response
// (spec.md section 4.6).
func (h *Hub) currentEpochs() (motionEpoch, thumbnailEpoch uint64, err error) {
	motion, err := h.client(subchannel.Motion)
	if err != nil {
		return 0, 0, err
	}
	thumb, err := h.client(subchannel.Thumbnail)
	if err != nil {
		return 0, 0, err
	}
	return motion.GetEpoch(), thumb.GetEpoch(), nil
}
