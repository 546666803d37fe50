package upload_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commission-board/internal/upload"
)

func newStore(t *testing.T) *upload.Store {
	t.Helper()
	store, err := upload.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestSaveCommitsUnderCommissionDir(t *testing.T) {
	store := newStore(t)

	rel, err := store.Save("A1B2C3D4E5F607", "final draft.png", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "A1B2C3D4E5F607/final-draft.png", rel)

	data, err := os.ReadFile(filepath.Join(store.Root, "A1B2C3D4E5F607", "final-draft.png"))
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestSaveLeavesNoStagingResidue(t *testing.T) {
	store := newStore(t)

	_, err := store.Save("A1B2C3D4E5F607", "logo.svg", strings.NewReader("svg"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(store.Root, ".staging"))
	require.NoError(t, err)
	assert.Empty(t, entries, "a committed upload must not leave staging files behind")
}

func TestSaveStripsDirectoryComponents(t *testing.T) {
	store := newStore(t)

	rel, err := store.Save("A1B2C3D4E5F607", "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "A1B2C3D4E5F607/passwd", rel)
}

func TestOpenRoundTrip(t *testing.T) {
	store := newStore(t)

	rel, err := store.Save("A1B2C3D4E5F607", "notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	f, err := store.Open(rel)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 5)
	_, err = f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := newStore(t)

	_, err := store.Open("../outside.txt")
	assert.Error(t, err)

	_, err = store.Open("/etc/passwd")
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	store := newStore(t)

	rel, err := store.Save("A1B2C3D4E5F607", "notes.txt", strings.NewReader("12345"))
	require.NoError(t, err)

	size, err := store.Size(rel)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 Bytes", upload.FormatBytes(0))
	assert.Equal(t, "512 Bytes", upload.FormatBytes(512))
	assert.Equal(t, "1 KB", upload.FormatBytes(1024))
	assert.Equal(t, "1.5 MB", upload.FormatBytes(1572864))
}
