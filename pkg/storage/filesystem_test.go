package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStreamOverwrites(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("avatars/u1/avatar.png", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.SaveStream("avatars/u1/avatar.png", strings.NewReader("second"))
	require.NoError(t, err)

	file, err := store.Open("avatars/u1/avatar.png")
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = store.Open("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("exports/old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("exports/new.csv", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "exports", "old.csv"), past, past))

	deleted, err := store.CleanupOlderThan("exports", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/old.csv"}, deleted)
}
