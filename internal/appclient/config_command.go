package appclient

import (
	"context"
	"fmt"

	"github.com/secluso/secluso/internal/subchannel"
)

// WaitConfigCommand blocks until the camera issues a config command,
// returning its decrypted plaintext. Config commands are opaque to
// this package — a forwarded firmware-update trigger, a Wi-Fi change,
// whatever the caller's config protocol carries — so no parsing
// happens here.
func (a *App) WaitConfigCommand(ctx context.Context) ([]byte, error) {
	client, err := a.client(subchannel.Config)
	if err != nil {
		return nil, err
	}
	wire, err := a.DS.WaitCommand(ctx, a.Camera)
	if err != nil {
		return nil, fmt.Errorf("appclient: wait config command: %w", err)
	}
	plain, err := client.Decrypt(wire, true)
	if err != nil {
		return nil, fmt.Errorf("appclient: decrypt config command: %w", err)
	}
	return plain, nil
}

// SendConfigResponse encrypts plaintext and uploads it as the reply to
// the camera's most recent config command.
func (a *App) SendConfigResponse(ctx context.Context, plaintext []byte) error {
	client, err := a.client(subchannel.Config)
	if err != nil {
		return err
	}
	ciphertext, err := client.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("appclient: encrypt config response: %w", err)
	}
	if err := a.DS.SendConfigResponse(ctx, a.Camera, ciphertext); err != nil {
		return fmt.Errorf("appclient: send config response: %w", err)
	}
	return nil
}
