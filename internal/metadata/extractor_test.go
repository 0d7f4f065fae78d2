package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"soundshelf/internal/logging"
	"soundshelf/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	extractor := NewExtractor(logging.Discard())
	dir := t.TempDir()

	t.Run("SyntheticFrames", func(t *testing.T) {
		// 120 frames * 1152 samples / 44100 Hz = 3.13s
		path := testutil.WriteMP3(t, dir, "three.mp3", 120)
		assert.Equal(t, 3, extractor.Duration(path))
	})

	t.Run("TruncatesToWholeSeconds", func(t *testing.T) {
		// 20 frames is ~0.52s
		path := testutil.WriteMP3(t, dir, "short.mp3", 20)
		assert.Equal(t, 0, extractor.Duration(path))
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := filepath.Join(dir, "empty.mp3")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatalf("Failed to write empty file: %v", err)
		}
		assert.Equal(t, 0, extractor.Duration(path))
	})

	t.Run("NonAudioFile", func(t *testing.T) {
		path := filepath.Join(dir, "notes.mp3")
		if err := os.WriteFile(path, []byte("this is a plain text file, not audio\n"), 0644); err != nil {
			t.Fatalf("Failed to write text file: %v", err)
		}
		assert.Equal(t, 0, extractor.Duration(path))
	})

	t.Run("MissingFile", func(t *testing.T) {
		assert.Equal(t, 0, extractor.Duration(filepath.Join(dir, "missing.mp3")))
	})
}

func TestProbe(t *testing.T) {
	extractor := NewExtractor(logging.Discard())
	path := testutil.WriteMP3(t, t.TempDir(), "untagged.mp3", 120)

	p := extractor.Probe(path)
	assert.Equal(t, 3, p.DurationSeconds)
	assert.Equal(t, 120, p.Frames)
	assert.Empty(t, p.Title, "synthetic frames carry no tags")
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		filename string
		expected MediaKind
	}{
		{"song.mp3", KindAudio},
		{"song.MP3", KindAudio},
		{"cover.png", KindImage},
		{"cover.jpg", KindImage},
		{"cover.JPEG", KindImage},
		{"song.flac", KindUnsupported},
		{"song.wav", KindUnsupported},
		{"notes.txt", KindUnsupported},
		{"mp3", KindUnsupported},
		{"", KindUnsupported},
	}

	for _, tc := range testCases {
		if got := Classify(tc.filename); got != tc.expected {
			t.Errorf("Classify(%q): expected %v, got %v", tc.filename, tc.expected, got)
		}
	}
}

func TestContentType(t *testing.T) {
	testCases := []struct {
		filename string
		expected string
	}{
		{"song.mp3", "audio/mpeg"},
		{"cover.png", "image/png"},
		{"cover.jpg", "image/jpeg"},
		{"cover.jpeg", "image/jpeg"},
		{"song.txt", "application/octet-stream"},
	}

	for _, tc := range testCases {
		if got := ContentType(tc.filename); got != tc.expected {
			t.Errorf("ContentType(%s): expected %s, got %s", tc.filename, tc.expected, got)
		}
	}
}
