package pairing

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/secluso/secluso/internal/framing"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/subchannel"
)

// ListenPort is the TCP port the camera hub listens on for direct LAN
// pairing connections (spec.md section 4.5).
const ListenPort = 12348

// globalLock serializes pairing attempts across every camera backend
// hosted by one hub process (spec.md section 4.5, "Concurrency").
var globalLock sync.Mutex

// RunCameraSide drives the camera's half of the per-sub-channel
// handshake (steps 2-4 of spec.md section 4.5) for all five clients
// over a freshly accepted connection, then runs the post-pairing config
// exchange. groupName is the shared, non-confidential 16-char group
// identifier the camera chooses for every sub-channel.
func RunCameraSide(ctx context.Context, conn net.Conn, secret []byte, clients [subchannel.Count]*mls.Client, groupName string, cfg CameraConfigExchange) error {
	globalLock.Lock()
	defer globalLock.Unlock()

	if len(secret) != SecretLen {
		return ErrBadSecretLength
	}

	for _, tag := range subchannel.All {
		if err := cameraHandshakeStep(conn, clients[tag], secret, groupName); err != nil {
			return fmt.Errorf("pairing: sub-channel %s: %w", tag, err)
		}
	}

	return runCameraConfigExchange(conn, clients[subchannel.Config], cfg)
}

func cameraHandshakeStep(conn net.Conn, client *mls.Client, secret []byte, groupName string) error {
	// Step 1: receive the app's key packages.
	appMsg, err := framing.ReadPairingFrame(conn)
	if err != nil {
		return fmt.Errorf("read app key packages: %w", err)
	}
	appKPs, err := unmarshalHandshake(appMsg, msgAppToCamera)
	if err != nil {
		return err
	}
	if len(appKPs) != 1 {
		return ErrNoKeyPackage
	}
	if err := appKPs[0].Verify(); err != nil {
		return fmt.Errorf("verify app key package: %w", err)
	}

	// Step 2: send our key packages.
	cameraMsg, err := marshalHandshake(msgCameraToApp, client.KeyPackages())
	if err != nil {
		return err
	}
	if err := framing.WritePairingFrame(conn, cameraMsg); err != nil {
		return fmt.Errorf("send camera key packages: %w", err)
	}

	// Step 3: create the group and invite the app.
	if err := client.CreateGroup(groupName); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	welcome, err := client.Invite(appKPs[0], secret)
	if err != nil {
		return fmt.Errorf("invite app: %w", err)
	}
	if err := framing.WritePairingFrame(conn, welcome); err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}

	// Step 4: send the shared group name.
	if err := framing.WritePairingFrame(conn, []byte(groupName)); err != nil {
		return fmt.Errorf("send group name: %w", err)
	}

	return nil
}

// RunAppSide drives the app's half of the handshake (steps 1 and 5)
// for all five clients, then the post-pairing config exchange. The
// camera's identity is learned from its key package in step 2 of each
// sub-channel's handshake, not supplied by the caller: the app has no
// way to know it beforehand. It returns the shared group name the
// camera chose.
func RunAppSide(ctx context.Context, conn net.Conn, secret []byte, clients [subchannel.Count]*mls.Client, cfg AppConfigExchange) (string, error) {
	if len(secret) != SecretLen {
		return "", ErrBadSecretLength
	}

	var groupName string
	for _, tag := range subchannel.All {
		name, err := appHandshakeStep(conn, clients[tag], secret)
		if err != nil {
			return "", fmt.Errorf("pairing: sub-channel %s: %w", tag, err)
		}
		groupName = name
	}

	if err := runAppConfigExchange(conn, clients[subchannel.Config], cfg); err != nil {
		return "", err
	}
	return groupName, nil
}

func appHandshakeStep(conn net.Conn, client *mls.Client, secret []byte) (string, error) {
	// Step 1: send our key package.
	appMsg, err := marshalHandshake(msgAppToCamera, client.KeyPackages())
	if err != nil {
		return "", err
	}
	if err := framing.WritePairingFrame(conn, appMsg); err != nil {
		return "", fmt.Errorf("send app key package: %w", err)
	}

	// Step 2: receive the camera's key packages.
	cameraMsg, err := framing.ReadPairingFrame(conn)
	if err != nil {
		return "", fmt.Errorf("read camera key packages: %w", err)
	}
	cameraKPs, err := unmarshalHandshake(cameraMsg, msgCameraToApp)
	if err != nil {
		return "", err
	}
	if len(cameraKPs) != 1 {
		return "", ErrNoKeyPackage
	}
	if err := cameraKPs[0].Verify(); err != nil {
		return "", fmt.Errorf("verify camera key package: %w", err)
	}

	// Step 3: receive the Welcome.
	welcome, err := framing.ReadPairingFrame(conn)
	if err != nil {
		return "", fmt.Errorf("read welcome: %w", err)
	}

	// Step 4: receive the group name.
	groupNameBytes, err := framing.ReadPairingFrame(conn)
	if err != nil {
		return "", fmt.Errorf("read group name: %w", err)
	}
	groupName := string(groupNameBytes)

	// Step 5: process the Welcome, verifying membership against the
	// camera identity just presented in its key package.
	if err := client.ProcessWelcome(cameraKPs[0].Identity, welcome, secret, groupName); err != nil {
		return "", fmt.Errorf("process welcome: %w", err)
	}

	return groupName, nil
}
