package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileStore_Roundtrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wordshelf")
	fs := NewFileStore(dir)
	ctx := context.Background()

	got, err := fs.Read(ctx)
	require.NoError(t, err)
	require.Nil(t, got, "missing file means no session")

	s := validSession()
	require.NoError(t, fs.Write(ctx, s))

	got, err = fs.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, s, *got)

	info, err := os.Stat(fs.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, _ := os.ReadFile(fs.Path())
	require.NotContains(t, string(raw), "acc", "session must be sealed at rest")
}

func TestFileStore_Remove_Idempotent(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, fs.Remove(ctx))
	require.NoError(t, fs.Write(ctx, validSession()))
	require.NoError(t, fs.Remove(ctx))
	require.NoError(t, fs.Remove(ctx))

	got, err := fs.Read(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFileStore_Read_TamperedFails(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, validSession()))

	raw, err := os.ReadFile(fs.Path())
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	require.NoError(t, os.WriteFile(fs.Path(), raw, 0o600))

	_, err = fs.Read(ctx)
	require.Error(t, err)
}

func TestFileStore_Read_MissingDeviceKeyFails(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, validSession()))
	require.NoError(t, os.Remove(filepath.Join(dir, deviceKeyFile)))

	_, err := fs.Read(ctx)
	require.Error(t, err)
}

func TestFileStore_WithManager_ExpiredFileRemoved(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	ctx := context.Background()

	s := validSession()
	s.AccessTokenExpiresAt = fixedNow.Add(-time.Minute).Unix()
	require.NoError(t, fs.Write(ctx, s))

	m := newTestManager(t, fs)
	require.Nil(t, m.Load(ctx))
	_, err := os.Stat(fs.Path())
	require.True(t, os.IsNotExist(err))
}
