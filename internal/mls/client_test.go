package mls

import (
	"testing"

	"github.com/secluso/secluso/internal/subchannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairedClients(t *testing.T) (camera, app *Client) {
	t.Helper()

	camDir := t.TempDir()
	appDir := t.TempDir()

	camera, err := New(camDir, subchannel.Motion)
	require.NoError(t, err)
	app, err = New(appDir, subchannel.Motion)
	require.NoError(t, err)

	require.NoError(t, camera.CreateGroup("0123456789abcdef"))

	secret := make([]byte, NumSecretBytes)
	for i := range secret {
		secret[i] = byte(i)
	}

	welcome, err := camera.Invite(app.KeyPackages()[0], secret)
	require.NoError(t, err)

	require.NoError(t, app.ProcessWelcome(camera.IdentityBytes(), welcome, secret, "0123456789abcdef"))

	return camera, app
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	// MLS-1
	camera, app := pairedClients(t)

	wire, err := camera.Encrypt([]byte("hello app"))
	require.NoError(t, err)

	pt, err := app.Decrypt(wire, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello app"), pt)

	wireBack, err := app.Encrypt([]byte("hello camera"))
	require.NoError(t, err)
	ptBack, err := camera.Decrypt(wireBack, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello camera"), ptBack)
}

func TestDecryptRejectsWrongAAD(t *testing.T) {
	// MLS-2
	camera, app := pairedClients(t)

	wire, err := camera.Encrypt([]byte("payload"))
	require.NoError(t, err)

	msg, err := unmarshalGroupMessage(wire)
	require.NoError(t, err)
	msg.AAD = "tampered AAD"
	tampered, err := marshalGroupMessage(*msg)
	require.NoError(t, err)

	_, err = app.Decrypt(tampered, true)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestProcessWelcomeFailsOnMismatchedSecret(t *testing.T) {
	// MLS-3
	camDir := t.TempDir()
	appDir := t.TempDir()

	camera, err := New(camDir, subchannel.Config)
	require.NoError(t, err)
	app, err := New(appDir, subchannel.Config)
	require.NoError(t, err)

	require.NoError(t, camera.CreateGroup("fedcba9876543210"))

	inviterSecret := make([]byte, NumSecretBytes)
	for i := range inviterSecret {
		inviterSecret[i] = byte(i)
	}
	welcome, err := camera.Invite(app.KeyPackages()[0], inviterSecret)
	require.NoError(t, err)

	wrongSecret := make([]byte, NumSecretBytes)
	for i := range wrongSecret {
		wrongSecret[i] = byte(255 - i)
	}

	err = app.ProcessWelcome(camera.IdentityBytes(), welcome, wrongSecret, "fedcba9876543210")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestInviteRejectsBadSecretLength(t *testing.T) {
	camDir := t.TempDir()
	camera, err := New(camDir, subchannel.Livestream)
	require.NoError(t, err)
	require.NoError(t, camera.CreateGroup("abcd1234abcd1234"))

	_, err = camera.Invite(KeyPackage{}, []byte("short"))
	assert.ErrorIs(t, err, ErrBadSecretLength)
}

func TestUpdateAdvancesEpochAndPeerApplies(t *testing.T) {
	camera, app := pairedClients(t)

	startEpoch := camera.GetEpoch()
	commit, newEpoch, err := camera.Update()
	require.NoError(t, err)
	assert.Equal(t, startEpoch+1, newEpoch)

	_, err = app.Decrypt(commit, false)
	require.NoError(t, err)
	assert.Equal(t, newEpoch, app.GetEpoch())

	// Both sides can still talk after the epoch bump.
	wire, err := camera.Encrypt([]byte("post-update"))
	require.NoError(t, err)
	pt, err := app.Decrypt(wire, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("post-update"), pt)
}

func TestDecryptRejectsStaleEpoch(t *testing.T) {
	camera, app := pairedClients(t)

	// App advances past camera without camera observing the commit.
	_, _, err := app.Update()
	require.NoError(t, err)

	wire, err := camera.Encrypt([]byte("stale"))
	require.NoError(t, err)

	_, err = app.Decrypt(wire, true)
	assert.ErrorIs(t, err, ErrInvalidEpoch)
}

func TestDecryptRejectsUnexpectedSender(t *testing.T) {
	camera, _ := pairedClients(t)
	// A third party (never invited) cannot be accepted even with a
	// structurally valid-looking application message, because the
	// sender check runs before any attempt to open the ciphertext.
	otherDir := t.TempDir()
	other, err := New(otherDir, subchannel.Motion)
	require.NoError(t, err)

	wire, err := camera.Encrypt([]byte("x"))
	require.NoError(t, err)
	msg, err := unmarshalGroupMessage(wire)
	require.NoError(t, err)
	msg.Sender = other.IdentityBytes()
	tampered, err := marshalGroupMessage(*msg)
	require.NoError(t, err)

	_, err = camera.Decrypt(tampered, true)
	assert.ErrorIs(t, err, ErrUnexpectedSender)
}

func TestSaveAndRestoreGroupState(t *testing.T) {
	camDir := t.TempDir()
	camera, err := New(camDir, subchannel.Thumbnail)
	require.NoError(t, err)
	require.NoError(t, camera.CreateGroup("1122334455667788"))
	require.NoError(t, camera.SaveGroupState())

	restored, err := New(camDir, subchannel.Thumbnail)
	require.NoError(t, err)
	name, err := restored.GetGroupName()
	require.NoError(t, err)
	assert.Equal(t, "1122334455667788", name)
	assert.Equal(t, camera.IdentityBytes(), restored.IdentityBytes())
}

func TestCleanRemovesPersistedState(t *testing.T) {
	dir := t.TempDir()
	camera, err := New(dir, subchannel.Config)
	require.NoError(t, err)
	require.NoError(t, camera.CreateGroup("aabbccddeeff0011"))
	require.NoError(t, camera.SaveGroupState())

	require.NoError(t, camera.Clean())

	restored, err := New(dir, subchannel.Config)
	require.NoError(t, err)
	assert.False(t, restored.HasContact())
	_, err = restored.GetGroupName()
	assert.ErrorIs(t, err, ErrNoGroup)
}
