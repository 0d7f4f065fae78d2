package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"soundshelf/internal/logging"
	"soundshelf/internal/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func newTestLocal(t *testing.T, generate bool) *Local {
	t.Helper()
	root := t.TempDir()
	return NewLocal(filepath.Join(root, "audio"), filepath.Join(root, "nested", "images"), generate, logging.Discard())
}

func TestEnsureDirsAndCheck(t *testing.T) {
	local := newTestLocal(t, false)

	assert.Error(t, local.Check(), "directories do not exist yet")
	require.NoError(t, local.EnsureDirs())
	require.NoError(t, local.EnsureDirs(), "EnsureDirs is idempotent")
	assert.NoError(t, local.Check())
}

func storedEntries(t *testing.T, l *Local, kind metadata.MediaKind) []string {
	t.Helper()
	entries, err := os.ReadDir(l.Dir(kind))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestStageAndCommit(t *testing.T) {
	local := newTestLocal(t, false)
	require.NoError(t, local.EnsureDirs())

	staged, err := local.Stage(metadata.KindAudio, "song1.mp3", strings.NewReader("mp3-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), staged.Bytes)
	assert.Equal(t, local.Path(metadata.KindAudio, "song1.mp3"), staged.Path)
	assert.Equal(t, local.Dir(metadata.KindAudio), filepath.Dir(staged.TempPath))
	assert.True(t, strings.HasPrefix(filepath.Base(staged.TempPath), "."), "staging files are hidden")

	_, err = os.Stat(staged.Path)
	assert.True(t, os.IsNotExist(err), "nothing is stored before commit")

	reused, err := local.Commit(staged)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, []string{"song1.mp3"}, storedEntries(t, local, metadata.KindAudio))

	data, err := os.ReadFile(staged.Path)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
}

func TestDiscardLeavesStoredFileAlone(t *testing.T) {
	local := newTestLocal(t, false)
	require.NoError(t, local.EnsureDirs())

	first, err := local.Stage(metadata.KindAudio, "song1.mp3", strings.NewReader("original"))
	require.NoError(t, err)
	_, err = local.Commit(first)
	require.NoError(t, err)

	second, err := local.Stage(metadata.KindAudio, "song1.mp3", strings.NewReader("replacement"))
	require.NoError(t, err)
	local.Discard(second)

	data, err := os.ReadFile(local.Path(metadata.KindAudio, "song1.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.Equal(t, []string{"song1.mp3"}, storedEntries(t, local, metadata.KindAudio))

	// Discarding twice, or after a commit, is harmless
	local.Discard(second)
	local.Discard(first)
	assert.Equal(t, []string{"song1.mp3"}, storedEntries(t, local, metadata.KindAudio))
}

func TestCommitReusesStoredImage(t *testing.T) {
	local := newTestLocal(t, false)
	require.NoError(t, local.EnsureDirs())

	first, err := local.Stage(metadata.KindImage, "cover.png", strings.NewReader("first"))
	require.NoError(t, err)
	reused, err := local.Commit(first)
	require.NoError(t, err)
	assert.False(t, reused)

	second, err := local.Stage(metadata.KindImage, "cover.png", strings.NewReader("second"))
	require.NoError(t, err)
	reused, err = local.Commit(second)
	require.NoError(t, err)
	assert.True(t, reused)

	data, err := os.ReadFile(local.Path(metadata.KindImage, "cover.png"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	assert.Equal(t, []string{"cover.png"}, storedEntries(t, local, metadata.KindImage))
}

func TestStageFailureRemovesPartialFile(t *testing.T) {
	local := newTestLocal(t, false)
	require.NoError(t, local.EnsureDirs())

	_, err := local.Stage(metadata.KindAudio, "broken.mp3", failingReader{})
	require.Error(t, err)
	assert.Empty(t, storedEntries(t, local, metadata.KindAudio))
}

func TestRemove(t *testing.T) {
	local := newTestLocal(t, false)
	require.NoError(t, local.EnsureDirs())

	path := local.Path(metadata.KindImage, "cover.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0644))

	require.NoError(t, local.Remove(metadata.KindImage, "cover.png"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, local.Remove(metadata.KindImage, "cover.png"), "removing a missing file is not an error")
}

func TestStoredName(t *testing.T) {
	verbatim := newTestLocal(t, false)
	assert.Equal(t, "My Song.mp3", verbatim.StoredName("My Song.mp3"))

	generated := newTestLocal(t, true)
	name := generated.StoredName("My Song.MP3")
	assert.True(t, strings.HasSuffix(name, ".mp3"))
	assert.Len(t, name, 36+len(".mp3"))
	assert.NotEqual(t, name, generated.StoredName("My Song.MP3"))
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"plain", "song1.mp3", nil},
		{"spaces and parens", "JAAH SLT Tuff (AUDIO).mp3", nil},
		{"empty", "", ErrEmptyName},
		{"whitespace", "   ", ErrEmptyName},
		{"parent dir", "../../etc/passwd.mp3", ErrPathTraversal},
		{"double dot inside", "song..mp3", ErrPathTraversal},
		{"forward slash", "dir/song.mp3", ErrPathTraversal},
		{"backslash", `dir\song.mp3`, ErrPathTraversal},
		{"null byte", "song\x00.mp3", ErrInvalidChars},
		{"too long", strings.Repeat("a", 256) + ".mp3", ErrNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "audio/song.mp3", ObjectName(metadata.KindAudio, "song.mp3"))
	assert.Equal(t, "images/cover.png", ObjectName(metadata.KindImage, "cover.png"))
}
