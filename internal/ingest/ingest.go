// Package ingest turns a multipart upload of one audio file and one cover
// image into stored media plus a catalog row.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"soundshelf/internal/apperr"
	"soundshelf/internal/metadata"
	"soundshelf/internal/storage"
	"soundshelf/pkg/models"

	"github.com/sirupsen/logrus"
)

// TrackStore persists an ingested track, and removes it again when its
// files cannot be put in place
type TrackStore interface {
	CreateTrack(ctx context.Context, externalName string, durationSeconds int, imageName *string) (models.Track, error)
	DeleteTrack(ctx context.Context, externalName string) (bool, error)
}

// DurationReader returns a file's playing time in whole seconds, 0 if unknown
type DurationReader interface {
	Duration(path string) int
}

// Result describes a finished ingestion. Bytes is set even when Ingest fails.
type Result struct {
	Track models.Track
	Bytes int64
}

// Ingester demultiplexes an upload into the audio and image slots
type Ingester struct {
	store     TrackStore
	local     *storage.Local
	durations DurationReader
	mirror    storage.Mirror
	logger    *logrus.Logger
}

// New creates an Ingester. mirror may be nil.
func New(store TrackStore, local *storage.Local, durations DurationReader, mirror storage.Mirror, logger *logrus.Logger) *Ingester {
	return &Ingester{
		store:     store,
		local:     local,
		durations: durations,
		mirror:    mirror,
		logger:    logger,
	}
}

// upload tracks the files staged so far by one request
type upload struct {
	local *storage.Local
	audio *storage.Staged
	image *storage.Staged
	bytes int64
}

// discard drops staged files. Committed files have already left their
// temporary names, so this never touches stored media.
func (u *upload) discard() {
	for _, staged := range []*storage.Staged{u.audio, u.image} {
		if staged != nil {
			u.local.Discard(*staged)
		}
	}
}

// Ingest reads every part of mr into staging files, computes the duration
// and inserts the track. Files move to their stored names only after the
// insert succeeds, so a failed upload leaves existing media untouched.
func (i *Ingester) Ingest(ctx context.Context, mr *multipart.Reader) (result Result, err error) {
	if err := i.local.EnsureDirs(); err != nil {
		return result, apperr.IO("Failed to prepare media storage", err)
	}

	u := &upload{local: i.local}
	defer func() {
		result.Bytes = u.bytes
		if err != nil {
			u.discard()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return result, apperr.IO("Upload cancelled", err)
		}

		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, partError(err)
		}

		err = i.storePart(u, part)
		part.Close()
		if err != nil {
			return result, err
		}
	}

	if u.audio == nil || u.image == nil {
		return result, apperr.Validation("Upload must contain one audio file and one image file")
	}

	duration := i.durations.Duration(u.audio.TempPath)
	if duration == 0 {
		return result, apperr.Internal("Unable to determine audio duration", nil)
	}

	imageName := u.image.Name
	track, err := i.store.CreateTrack(ctx, u.audio.Name, duration, &imageName)
	if err != nil {
		return result, err
	}

	if err := i.commit(u); err != nil {
		if _, derr := i.store.DeleteTrack(ctx, track.ExternalName); derr != nil {
			i.logger.WithError(derr).WithField("external_name", track.ExternalName).Error("Failed to roll back track row")
		}
		return result, err
	}
	result.Track = track

	i.mirrorFiles(ctx, u)

	i.logger.WithFields(logrus.Fields{
		"track_id":      track.ID,
		"external_name": track.ExternalName,
		"duration":      duration,
		"image":         imageName,
		"bytes":         u.bytes,
	}).Info("Track ingested")
	return result, nil
}

// storePart validates one part and streams it into its slot
func (i *Ingester) storePart(u *upload, part *multipart.Part) error {
	name := part.FileName()
	if name == "" {
		return apperr.Validation("Every part must be a file with a filename")
	}
	if err := storage.ValidateName(name); err != nil {
		return apperr.Validation(fmt.Sprintf("Invalid filename: %v", err))
	}

	kind := metadata.Classify(name)
	var slot **storage.Staged
	switch kind {
	case metadata.KindAudio:
		slot = &u.audio
	case metadata.KindImage:
		slot = &u.image
	default:
		return apperr.Validation(fmt.Sprintf("Unsupported file type: %s", name))
	}
	if *slot != nil {
		return apperr.Validation(fmt.Sprintf("Only one %s file is allowed per upload", kind))
	}

	staged, err := i.local.Stage(kind, i.local.StoredName(name), part)
	u.bytes += staged.Bytes
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation(fmt.Sprintf("Upload exceeds the %d byte limit", tooLarge.Limit))
		}
		return apperr.IO("Failed to store uploaded file", err)
	}
	*slot = &staged
	return nil
}

// commit moves both staged files to their stored names, image first. When
// the audio cannot be placed, an image placed by this request is removed.
func (i *Ingester) commit(u *upload) error {
	imageReused, err := i.local.Commit(*u.image)
	if err != nil {
		return apperr.IO("Failed to store uploaded file", err)
	}
	if imageReused {
		i.logger.WithField("image", u.image.Name).Debug("Reusing stored cover image")
	}

	if _, err := i.local.Commit(*u.audio); err != nil {
		if !imageReused {
			if rerr := i.local.Remove(metadata.KindImage, u.image.Name); rerr != nil {
				i.logger.WithError(rerr).WithField("image", u.image.Name).Warn("Failed to remove cover image")
			}
		}
		return apperr.IO("Failed to store uploaded file", err)
	}
	return nil
}

func (i *Ingester) mirrorFiles(ctx context.Context, u *upload) {
	if i.mirror == nil {
		return
	}
	for _, staged := range []*storage.Staged{u.audio, u.image} {
		if err := i.mirror.Put(ctx, staged.Kind, staged.Name, staged.Path); err != nil {
			i.logger.WithError(err).WithField("name", staged.Name).Warn("Failed to mirror media file")
		}
	}
}

// partError classifies a failure to read the next part header
func partError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation(fmt.Sprintf("Upload exceeds the %d byte limit", tooLarge.Limit))
	}
	return apperr.Validation("Malformed multipart body")
}
