package server

import (
	"context"
	"path/filepath"
	"strings"

	"soundshelf/internal/metadata"

	"github.com/fsnotify/fsnotify"
)

// startFileWatcher watches the audio directory so tracks whose file is
// removed from disk leave the catalog too.
func (ms *MusicServer) startFileWatcher() error {
	if err := ms.local.EnsureDirs(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(ms.config.Storage.AudioDir); err != nil {
		watcher.Close()
		return err
	}
	ms.watcher = watcher

	go ms.watchFiles(watcher)

	ms.logger.WithField("audio_dir", ms.config.Storage.AudioDir).Info("File watcher started")
	return nil
}

// watchFiles selects on watcher channels and dispatches events.
func (ms *MusicServer) watchFiles(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			ms.handleFileEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			ms.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent reacts to audio files leaving the directory. Uploads are
// the only way in, so creations are ignored.
func (ms *MusicServer) handleFileEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	if metadata.Classify(fileName) != metadata.KindAudio {
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		ms.handleRemovedFile(fileName)
	}
}

// handleRemovedFile removes the track row referencing a deleted audio file.
func (ms *MusicServer) handleRemovedFile(name string) {
	deleted, err := ms.db.DeleteTrack(context.Background(), name)
	if err != nil {
		ms.logger.WithError(err).WithField("external_name", name).Error("Error removing track from database")
		return
	}
	if deleted {
		ms.logger.WithField("external_name", name).Info("Audio file removed, track deleted")
	}
}

// stopFileWatcher closes the watcher (idempotent).
func (ms *MusicServer) stopFileWatcher() {
	if ms.watcher != nil {
		ms.watcher.Close()
		ms.watcher = nil
	}
}
