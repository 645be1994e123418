package pairing

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/secluso/secluso/internal/framing"
	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/transport"
)

// WifiCredentials is the headless-hub Wi-Fi provisioning payload carried
// over the config sub-channel (spec.md section 4.5 paragraph 2).
type WifiCredentials struct {
	SSID         string `json:"ssid"`
	Passphrase   string `json:"passphrase"`
	PairingToken string `json:"pairing_token"`
}

// postGroupMsg is the single JSON envelope exchanged, MLS-encrypted,
// over the config sub-channel immediately after all five groups exist.
// Either field may be absent depending on direction and camera
// capability.
type postGroupMsg struct {
	DSUsername      string           `json:"ds_username,omitempty"`
	DSPassword      string           `json:"ds_password,omitempty"`
	FirmwareVersion string           `json:"firmware_version,omitempty"`
	Wifi            *WifiCredentials `json:"wifi,omitempty"`
}

// CameraConfigExchange carries what the camera contributes to, and
// expects from, the post-group config exchange.
type CameraConfigExchange struct {
	// FirmwareVersion is sent to the app.
	FirmwareVersion string

	// SupportsWifiProvisioning reports whether this camera backend has a
	// radio to provision; when false, the camera skips the Wi-Fi step
	// entirely (spec.md section 4.5.1 supplement).
	SupportsWifiProvisioning bool

	// ApplyWifi persists Wi-Fi credentials received from the app.
	// Unused when SupportsWifiProvisioning is false.
	ApplyWifi func(WifiCredentials) error

	// DS, if non-nil, is used to confirm Wi-Fi provisioning via /pair
	// once credentials are applied.
	DS *transport.Client
}

// AppConfigExchange carries what the app contributes to, and expects
// from, the post-group config exchange.
type AppConfigExchange struct {
	// DSUsername/DSPassword are the delivery-service credentials handed
	// to the camera so it can reach the same account's queues.
	DSUsername string
	DSPassword string

	// Wifi is sent to the camera when the user provisioned Wi-Fi during
	// pairing; nil when not applicable.
	Wifi *WifiCredentials

	// DS, if non-nil and Wifi is set, is used to confirm provisioning
	// via /pair.
	DS *transport.Client
}

// runCameraConfigExchange drives the camera's half: receive DS
// credentials and (if supported) Wi-Fi credentials, send back the
// firmware version.
func runCameraConfigExchange(conn net.Conn, client *mls.Client, cfg CameraConfigExchange) error {
	incoming, err := readEncryptedConfigMsg(conn, client)
	if err != nil {
		return fmt.Errorf("pairing: config exchange: read app payload: %w", err)
	}

	if incoming.DSUsername == "" || incoming.DSPassword == "" {
		return fmt.Errorf("pairing: config exchange: missing ds credentials")
	}

	if cfg.SupportsWifiProvisioning && incoming.Wifi != nil && cfg.ApplyWifi != nil {
		if err := cfg.ApplyWifi(*incoming.Wifi); err != nil {
			return fmt.Errorf("pairing: config exchange: apply wifi: %w", err)
		}
		if cfg.DS != nil {
			if _, err := cfg.DS.Pair(context.Background(), incoming.Wifi.PairingToken, transport.PairRoleCamera); err != nil {
				return fmt.Errorf("pairing: config exchange: confirm wifi pairing: %w", err)
			}
		}
	}

	outgoing := postGroupMsg{FirmwareVersion: cfg.FirmwareVersion}
	return writeEncryptedConfigMsg(conn, client, outgoing)
}

// runAppConfigExchange drives the app's half: send DS credentials and
// (optionally) Wi-Fi credentials, then receive the camera's firmware
// version.
func runAppConfigExchange(conn net.Conn, client *mls.Client, cfg AppConfigExchange) error {
	outgoing := postGroupMsg{
		DSUsername: cfg.DSUsername,
		DSPassword: cfg.DSPassword,
		Wifi:       cfg.Wifi,
	}
	if err := writeEncryptedConfigMsg(conn, client, outgoing); err != nil {
		return fmt.Errorf("pairing: config exchange: send app payload: %w", err)
	}

	if cfg.Wifi != nil && cfg.DS != nil {
		if _, err := cfg.DS.Pair(context.Background(), cfg.Wifi.PairingToken, transport.PairRolePhone); err != nil {
			return fmt.Errorf("pairing: config exchange: confirm wifi pairing: %w", err)
		}
	}

	incoming, err := readEncryptedConfigMsg(conn, client)
	if err != nil {
		return fmt.Errorf("pairing: config exchange: read camera payload: %w", err)
	}
	if incoming.FirmwareVersion == "" {
		return fmt.Errorf("pairing: config exchange: missing firmware version")
	}
	return nil
}

func writeEncryptedConfigMsg(conn net.Conn, client *mls.Client, msg postGroupMsg) error {
	plaintext, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ciphertext, err := client.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt config payload: %w", err)
	}
	return framing.WritePairingFrame(conn, ciphertext)
}

func readEncryptedConfigMsg(conn net.Conn, client *mls.Client) (postGroupMsg, error) {
	ciphertext, err := framing.ReadPairingFrame(conn)
	if err != nil {
		return postGroupMsg{}, err
	}
	plaintext, err := client.Decrypt(ciphertext, true)
	if err != nil {
		return postGroupMsg{}, fmt.Errorf("decrypt config payload: %w", err)
	}
	var msg postGroupMsg
	if err := json.Unmarshal(plaintext, &msg); err != nil {
		return postGroupMsg{}, err
	}
	return msg, nil
}
