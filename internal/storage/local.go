package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"soundshelf/internal/metadata"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Local stores uploaded media in one directory per media kind
type Local struct {
	audioDir      string
	imageDir      string
	generateNames bool
	logger        *logrus.Logger
}

// NewLocal creates a local media store. When generateNames is set, stored
// files get a random UUID name that keeps the client's extension.
func NewLocal(audioDir, imageDir string, generateNames bool, logger *logrus.Logger) *Local {
	return &Local{
		audioDir:      audioDir,
		imageDir:      imageDir,
		generateNames: generateNames,
		logger:        logger,
	}
}

// EnsureDirs creates the audio and image directories if they are missing
func (l *Local) EnsureDirs() error {
	for _, dir := range []string{l.audioDir, l.imageDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return nil
}

// Dir returns the directory holding files of the given kind
func (l *Local) Dir(kind metadata.MediaKind) string {
	if kind == metadata.KindImage {
		return l.imageDir
	}
	return l.audioDir
}

// Path returns the on-disk path for a stored name
func (l *Local) Path(kind metadata.MediaKind, name string) string {
	return filepath.Join(l.Dir(kind), name)
}

// StoredName returns the name a client filename is stored under
func (l *Local) StoredName(clientName string) string {
	if !l.generateNames {
		return clientName
	}
	return uuid.New().String() + strings.ToLower(filepath.Ext(clientName))
}

// Staged is an uploaded file written to a temporary name next to its final
// path. Nothing under the final name changes until Commit.
type Staged struct {
	Kind     metadata.MediaKind
	Name     string
	Path     string
	TempPath string
	Bytes    int64
}

// Stage streams r into a hidden temporary file in the kind's directory. The
// handle is closed on every path; a failed write removes the temporary file.
func (l *Local) Stage(kind metadata.MediaKind, name string, r io.Reader) (Staged, error) {
	staged := Staged{Kind: kind, Name: name, Path: l.Path(kind, name)}

	file, err := os.CreateTemp(l.Dir(kind), ".upload-*.tmp")
	if err != nil {
		return staged, fmt.Errorf("failed to create staging file for %s: %w", name, err)
	}
	staged.TempPath = file.Name()

	staged.Bytes, err = io.Copy(file, r)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(staged.TempPath)
		return staged, fmt.Errorf("failed to write %s: %w", name, err)
	}

	l.logger.WithFields(logrus.Fields{
		"kind":  kind.String(),
		"name":  name,
		"bytes": staged.Bytes,
	}).Debug("Staged media file")
	return staged, nil
}

// Commit moves a staged file to its final name. Audio replaces whatever is
// there. An image whose name is already stored is reused as-is and the
// staged copy is dropped; reused reports that case.
func (l *Local) Commit(staged Staged) (reused bool, err error) {
	if staged.Kind == metadata.KindImage {
		if _, err := os.Stat(staged.Path); err == nil {
			l.Discard(staged)
			return true, nil
		}
	}

	if err := os.Rename(staged.TempPath, staged.Path); err != nil {
		return false, fmt.Errorf("failed to store %s: %w", staged.Name, err)
	}
	return false, nil
}

// Discard removes a staged file that was never committed
func (l *Local) Discard(staged Staged) {
	if staged.TempPath == "" {
		return
	}
	if err := os.Remove(staged.TempPath); err != nil && !os.IsNotExist(err) {
		l.logger.WithError(err).WithField("name", staged.Name).Warn("Failed to remove staged upload")
	}
}

// Remove deletes a stored file; a missing file is not an error
func (l *Local) Remove(kind metadata.MediaKind, name string) error {
	err := os.Remove(l.Path(kind, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Check verifies both directories exist and are directories
func (l *Local) Check() error {
	for _, dir := range []string{l.audioDir, l.imageDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
	}
	return nil
}
