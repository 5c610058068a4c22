package cursor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingIsNotError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	val, ok, err := store.Load("host-01")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, val)
}

func TestStore_StoreThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Store("host-01", "s=abc123"))

	val, ok, err := store.Load("host-01")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s=abc123", val)
}

func TestStore_StoreOverwritesPreviousValue(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Store("host-01", "c1"))
	require.NoError(t, store.Store("host-01", "c2"))

	val, ok, err := store.Load("host-01")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c2", val)
}

func TestStore_ResetDeletesFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Store("host-01", "c1"))
	require.NoError(t, store.Reset("host-01"))

	_, ok, err := store.Load("host-01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ResetMissingIsNotError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	assert.NoError(t, store.Reset("never-existed"))
}

// P6: No .tmp sibling survives a successful Store call, and the final file
// never observably contains partial content — either the pre-call or the
// post-call value.
func TestStore_NoTmpFileSurvivesSuccessfulStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Store("host-01", "c1"))

	_, err = os.Stat(filepath.Join(dir, "host-01.cursor.tmp"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dir, "host-01.cursor"))
	require.NoError(t, err)
	assert.Equal(t, "c1", string(data))
}

func TestStore_EmptyFileTreatedAsNoPriorState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "host-01.cursor"), nil, 0o600))

	store, err := NewStore(dir)
	require.NoError(t, err)

	_, ok, err := store.Load("host-01")
	require.NoError(t, err)
	assert.False(t, ok)
}
