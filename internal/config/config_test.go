package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(yaml), 0o600))
}

func TestInitializeLoadsCameraHubSection(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
camera_hub:
  backend: raspberry_pi
  ds_base_url: https://ds.example.com
  ds_username: aliceuser0001X
  ds_password: secretpass0001
  heartbeat_interval: 30s
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, cfg.CameraHub)
	assert.Equal(t, "raspberry_pi", cfg.CameraHub.Backend)
	assert.Equal(t, 30*time.Second, cfg.CameraHub.HeartbeatInterval)
	// defaults fill in dirs the user omitted
	assert.NotEmpty(t, cfg.CameraHub.StateDir)
	assert.Nil(t, cfg.DS)
	assert.Nil(t, cfg.App)
}

func TestInitializeExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_DS_PASSWORD", "secretpass0001")
	dir := t.TempDir()
	writeConfig(t, dir, `
camera_hub:
  ds_base_url: https://ds.example.com
  ds_username: aliceuser0001X
  ds_password: ${TEST_DS_PASSWORD}
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "secretpass0001", cfg.CameraHub.DSPassword)
}

func TestInitializeRejectsMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
camera_hub:
  ds_username: aliceuser0001X
  ds_password: secretpass0001
`)

	_, err := Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestInitializeRejectsMissingFile(t *testing.T) {
	_, err := Initialize(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestInitializeDeliveryServiceSkipsCredentialsDirWhenSkipSet(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
delivery_service:
  skip_user_credentials: true
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, cfg.DS)
	assert.True(t, cfg.DS.SkipUserCredentials)
}
