package statefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	N int `json:"n"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	_, err := Save(dir, "monitor", []byte(`{"n":1}`))
	require.NoError(t, err)
	_, err = Save(dir, "monitor", []byte(`{"n":2}`))
	require.NoError(t, err)

	var got payload
	err = Load(dir, "monitor", func(b []byte) error { return json.Unmarshal(b, &got) })
	require.NoError(t, err)
	assert.Equal(t, 2, got.N)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "older siblings must be deleted after a successful save")
}

func TestLoadFallsBackOnCorruptNewest(t *testing.T) {
	dir := t.TempDir()

	path1, err := Save(dir, "ks", []byte(`{"n":5}`))
	require.NoError(t, err)

	// Simulate a torn write: create a newer file manually with garbage.
	corrupt := filepath.Join(dir, "ks_"+"999999999999999999")
	require.NoError(t, os.WriteFile(corrupt, []byte("not json"), 0o644))

	var got payload
	err = Load(dir, "ks", func(b []byte) error { return json.Unmarshal(b, &got) })
	require.NoError(t, err)
	assert.Equal(t, 5, got.N)
	assert.FileExists(t, path1)
}

func TestLoadAllCorruptReturnsErrCorrupt(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(dir, "ks", []byte("garbage"))
	require.NoError(t, err)

	err = Load(dir, "ks", func(b []byte) error { return json.Unmarshal(b, &struct{}{}) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	err := Load(dir, "missing", func(b []byte) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanRemovesAllGenerations(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(dir, "monitor", []byte("a"))
	require.NoError(t, err)

	require.NoError(t, Clean(dir, "monitor"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
