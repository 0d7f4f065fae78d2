package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// MediaKind is the storage slot a file belongs to
type MediaKind int

const (
	KindUnsupported MediaKind = iota
	KindAudio
	KindImage
)

func (k MediaKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	default:
		return "unsupported"
	}
}

var (
	audioFormats = map[string]string{
		".mp3": "audio/mpeg",
	}
	imageFormats = map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
	}
)

// Probe describes what could be read from an audio file
type Probe struct {
	DurationSeconds int
	Frames          int
	Format          string
	Title           string
	Artist          string
}

// Extractor computes durations and classifies uploaded files
type Extractor struct {
	logger *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(logger *logrus.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Classify returns the storage slot for a filename based on its extension
func Classify(filename string) MediaKind {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := audioFormats[ext]; ok {
		return KindAudio
	}
	if _, ok := imageFormats[ext]; ok {
		return KindImage
	}
	return KindUnsupported
}

// ContentType returns the MIME type for a supported media file
func ContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := audioFormats[ext]; ok {
		return ct
	}
	if ct, ok := imageFormats[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Duration returns the play time of the MP3 at filePath in whole seconds.
// Unreadable or undecodable files yield 0, which callers treat as unknown.
func (e *Extractor) Duration(filePath string) int {
	seconds, frames, err := e.durationMP3(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to calculate duration, returning 0")
		return 0
	}
	e.logger.WithFields(logrus.Fields{
		"file_path": filePath,
		"frames":    frames,
		"duration":  seconds,
	}).Debug("Calculated audio duration")
	return seconds
}

// Probe returns the duration plus any tags found in the file. Missing tags are
// not an error; the zero-duration rule still applies.
func (e *Extractor) Probe(filePath string) Probe {
	startTime := time.Now()

	var p Probe
	seconds, frames, err := e.durationMP3(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to calculate duration, returning 0")
	} else {
		p.DurationSeconds = seconds
		p.Frames = frames
	}

	file, err := os.Open(filePath)
	if err != nil {
		return p
	}
	defer file.Close()

	if md, err := tag.ReadFrom(file); err == nil {
		p.Format = string(md.Format())
		p.Title = md.Title()
		p.Artist = md.Artist()
	} else {
		e.logger.WithError(err).WithField("file_path", filePath).Debug("No readable tags")
	}

	e.logger.WithFields(logrus.Fields{
		"file_path":      filePath,
		"duration":       p.DurationSeconds,
		"format":         p.Format,
		"title":          p.Title,
		"processingTime": time.Since(startTime),
	}).Debug("Probed audio file")

	return p
}

// durationMP3 sums frame durations. A decode error after at least one good
// frame ends the scan with what was decoded so far.
func (e *Extractor) durationMP3(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if frames == 0 {
				if errors.Is(err, io.EOF) {
					return 0, 0, fmt.Errorf("no mp3 frames found")
				}
				return 0, 0, fmt.Errorf("failed to decode mp3 frame: %w", err)
			}
			break
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), frames, nil
}
