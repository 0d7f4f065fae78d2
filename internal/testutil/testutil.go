// Package testutil contains shared testing utilities
package testutil

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"soundshelf/internal/config"
	"soundshelf/internal/database"
	"soundshelf/internal/logging"
)

// mpegFrameHeader is an MPEG-1 Layer III header: 128 kbps, 44.1 kHz, no CRC,
// no padding. Each frame is 417 bytes and holds 1152 samples (~26 ms).
var mpegFrameHeader = []byte{0xFF, 0xFB, 0x90, 0x00}

const mpegFrameSize = 417

// FramesPerSecond is the number of synthetic frames in roughly one second
const FramesPerSecond = 39

// MP3Bytes returns a silent MP3 stream made of n frames
func MP3Bytes(n int) []byte {
	var buf bytes.Buffer
	frame := make([]byte, mpegFrameSize)
	copy(frame, mpegFrameHeader)
	for i := 0; i < n; i++ {
		buf.Write(frame)
	}
	return buf.Bytes()
}

// WriteMP3 writes n synthetic frames to dir/name and returns the path
func WriteMP3(t *testing.T, dir, name string, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, MP3Bytes(n), 0644); err != nil {
		t.Fatalf("Failed to write test mp3: %v", err)
	}
	return path
}

// PNGBytes returns a minimal PNG signature followed by filler bytes
func PNGBytes() []byte {
	return append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0x00}, 64)...)
}

// Part is one file part of a multipart upload
type Part struct {
	Field    string
	Filename string
	Data     []byte
}

// MultipartBody encodes parts as a multipart/form-data body and returns it
// with its content type
func MultipartBody(t *testing.T, parts ...Part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		field := p.Field
		if field == "" {
			field = "file"
		}
		fw, err := w.CreateFormFile(field, p.Filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(p.Data)); err != nil {
			t.Fatalf("Failed to write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}

// MultipartReader wraps MultipartBody in a reader ready for consumption
func MultipartReader(t *testing.T, parts ...Part) *multipart.Reader {
	t.Helper()
	body, contentType := MultipartBody(t, parts...)
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("Failed to parse boundary: %v", err)
	}
	return multipart.NewReader(body, params["boundary"])
}

// NewDatabase opens a fresh SQLite catalog under t.TempDir()
func NewDatabase(t *testing.T) *database.Database {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "catalog.db")

	db, err := database.NewDatabase(cfg.Database, logging.Discard())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Stats returns the catalog row counts, for assertions on side effects
func Stats(t *testing.T, db *database.Database) database.Stats {
	t.Helper()
	stats, err := db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Failed to read catalog stats: %v", err)
	}
	return stats
}
