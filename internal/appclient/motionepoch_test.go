package appclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMotionEpochDefaultsToFirstMotionEpoch(t *testing.T) {
	epoch, err := LoadMotionEpoch(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), epoch)
}

func TestSaveMotionEpochRoundTrips(t *testing.T) {
	stateDir := t.TempDir()

	require.NoError(t, SaveMotionEpoch(stateDir, 7))

	epoch, err := LoadMotionEpoch(stateDir)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), epoch)

	require.NoError(t, SaveMotionEpoch(stateDir, 8))
	epoch, err = LoadMotionEpoch(stateDir)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), epoch)
}
