package pairing

import (
	"net"
	"sync"
	"testing"

	"github.com/secluso/secluso/internal/mls"
	"github.com/secluso/secluso/internal/subchannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairedConfigClients(t *testing.T) (camera, app *mls.Client) {
	t.Helper()

	camDir := t.TempDir()
	appDir := t.TempDir()

	camera, err := mls.New(camDir, subchannel.Config)
	require.NoError(t, err)
	app, err = mls.New(appDir, subchannel.Config)
	require.NoError(t, err)

	require.NoError(t, camera.CreateGroup("0123456789abcdef"))

	secret := make([]byte, mls.NumSecretBytes)
	for i := range secret {
		secret[i] = byte(i)
	}

	welcome, err := camera.Invite(app.KeyPackages()[0], secret)
	require.NoError(t, err)
	require.NoError(t, app.ProcessWelcome(camera.IdentityBytes(), welcome, secret, "0123456789abcdef"))

	return camera, app
}

func TestConfigExchangeDeliversCredentialsAndFirmware(t *testing.T) {
	camera, app := pairedConfigClients(t)
	cameraConn, appConn := net.Pipe()
	defer cameraConn.Close()
	defer appConn.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	var cameraErr, appErr error
	var appliedWifi WifiCredentials
	var wifiApplied bool

	go func() {
		defer wg.Done()
		cameraErr = runCameraConfigExchange(cameraConn, camera, CameraConfigExchange{
			FirmwareVersion:          "1.2.3",
			SupportsWifiProvisioning: true,
			ApplyWifi: func(w WifiCredentials) error {
				appliedWifi = w
				wifiApplied = true
				return nil
			},
		})
	}()
	go func() {
		defer wg.Done()
		appErr = runAppConfigExchange(appConn, app, AppConfigExchange{
			DSUsername: "aliceuser0001X",
			DSPassword: "secretpass0001",
			Wifi:       &WifiCredentials{SSID: "home-net", Passphrase: "hunter222222", PairingToken: "tok"},
		})
	}()
	wg.Wait()

	require.NoError(t, cameraErr)
	require.NoError(t, appErr)
	assert.True(t, wifiApplied)
	assert.Equal(t, "home-net", appliedWifi.SSID)
}

func TestConfigExchangeSkipsWifiWhenUnsupported(t *testing.T) {
	camera, app := pairedConfigClients(t)
	cameraConn, appConn := net.Pipe()
	defer cameraConn.Close()
	defer appConn.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	var cameraErr, appErr error
	applyCalled := false

	go func() {
		defer wg.Done()
		cameraErr = runCameraConfigExchange(cameraConn, camera, CameraConfigExchange{
			FirmwareVersion:          "9.9.9",
			SupportsWifiProvisioning: false,
			ApplyWifi: func(WifiCredentials) error {
				applyCalled = true
				return nil
			},
		})
	}()
	go func() {
		defer wg.Done()
		appErr = runAppConfigExchange(appConn, app, AppConfigExchange{
			DSUsername: "aliceuser0001X",
			DSPassword: "secretpass0001",
			Wifi:       &WifiCredentials{SSID: "ignored-net", Passphrase: "hunter222222", PairingToken: "tok"},
		})
	}()
	wg.Wait()

	require.NoError(t, cameraErr)
	require.NoError(t, appErr)
	assert.False(t, applyCalled)
}
