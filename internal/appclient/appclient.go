// Package appclient implements the paired mobile app's side of a
// camera relationship: the five MLS sub-channel clients, the delivery
// service transport, and the operations built on top of them — motion
// video retrieval, heartbeat polling, and livestream playback (spec.md
// sections 4.2, 4.3, 4.6).
package appclient

import (
	"fmt"

	"github.com/secluso/secluso/internal/heartbeat"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/subchannel"
	"github.com/secluso/secluso/internal/transport"
)

// App is one app-side view of a single paired camera: one MLS client
// per sub-channel, the DS transport used to reach it, and the
// heartbeat monitor tracking its liveness.
type App struct {
	Camera    string
	DS        *transport.Client
	Clients   [subchannel.Count]*mls.Client
	Heartbeat *heartbeat.Monitor
}

// New builds an App from already-paired MLS clients, one per
// sub-channel in subchannel.All order.
func New(camera string, ds *transport.Client, clients [subchannel.Count]*mls.Client) *App {
	return &App{
		Camera:    camera,
		DS:        ds,
		Clients:   clients,
		Heartbeat: heartbeat.NewMonitor(),
	}
}

func (a *App) client(tag subchannel.Tag) (*mls.Client, error) {
	if !tag.Valid() {
		return nil, fmt.Errorf("appclient: invalid sub-channel %d", tag)
	}
	c := a.Clients[tag]
	if c == nil {
		return nil, fmt.Errorf("appclient: sub-channel %s not paired", tag)
	}
	return c, nil
}
