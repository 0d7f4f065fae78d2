package server

import (
	"net/http"

	"soundshelf/internal/apperr"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// handleUploadTrack ingests one audio file and one cover image
func (ms *MusicServer) handleUploadTrack(w http.ResponseWriter, r *http.Request) {
	if !ms.uploadLimiter.Allow() {
		rerr := apperr.RateLimited("Too many uploads, try again later")
		ms.observeUpload(rerr, 0, 0)
		ms.respondWithError(w, r, rerr)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, ms.config.MaxUploadBytes())

	mr, err := r.MultipartReader()
	if err != nil {
		verr := apperr.Validation("Request must be multipart/form-data")
		ms.observeUpload(verr, 0, 0)
		ms.respondWithError(w, r, verr)
		return
	}

	result, err := ms.ingester.Ingest(r.Context(), mr)
	ms.observeUpload(err, result.Bytes, result.Track.DurationSeconds)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}

	ms.respondMessage(w, http.StatusOK, "Track added: "+result.Track.ExternalName)
}

func (ms *MusicServer) observeUpload(err error, bytes int64, duration int) {
	if ms.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	ms.metrics.ObserveUpload(outcome, bytes, duration)
}

// handleGetTracks returns every track
func (ms *MusicServer) handleGetTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := ms.db.ListTracks(r.Context())
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondJSON(w, http.StatusOK, toTrackRecords(tracks, ms.config.Storage.ImageBaseURL))
}

// handleGetTrack returns one track by external name
func (ms *MusicServer) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["externalName"]

	track, err := ms.db.GetTrackByExternalName(r.Context(), name)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondJSON(w, http.StatusOK, toTrackRecord(track, ms.config.Storage.ImageBaseURL))
}

// handleDeleteTrack removes a track's row. Stored files are kept.
func (ms *MusicServer) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["externalName"]

	deleted, err := ms.db.DeleteTrack(r.Context(), name)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}

	ms.logger.WithFields(logrus.Fields{
		"external_name": name,
		"existed":       deleted,
	}).Debug("Delete track request handled")
	ms.respondMessage(w, http.StatusOK, "Track deleted successfully")
}
