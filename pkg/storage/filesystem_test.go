package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("2026-10-17/20701_1.jpg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17/20701_1.jpg", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "jpeg", string(body))

	require.NoError(t, store.Delete(name))
	require.NoError(t, store.Delete(name))
	_, err = os.Stat(filepath.Join(store.Dir(), "2026-10-17", "20701_1.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageSaveStreamLimit(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("big.bin", bytes.NewReader(make([]byte, 11)), 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, statErr := store.Stat("big.bin")
	assert.Error(t, statErr)

	_, err = store.SaveStream("ok.bin", strings.NewReader("0123456789"), 10)
	require.NoError(t, err)
	info, err := store.Stat("ok.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size)
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../x", "a/../../x", "/etc/passwd", ""} {
		_, err := store.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, name)
	}
}

func TestLocalStorageList(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"meal.db.backup_b", "meal.db.backup_a", "other.txt"} {
		_, err := store.Save(name, []byte(name))
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "meal.db.backup_dir"), 0o755))

	files, err := store.List("meal.db.backup_")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "meal.db.backup_a", files[0].Name)
	assert.Equal(t, "meal.db.backup_b", files[1].Name)
}
