package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

type createPlaylistRequest struct {
	Name      string `json:"name"`
	CreatorID int    `json:"creatorId"`
}

type membershipRequest struct {
	TrackID    int `json:"trackId"`
	PlaylistID int `json:"playlistId"`
}

// handleCreatePlaylist creates an empty playlist
func (ms *MusicServer) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	if verr := validatePlaylistName(req.Name); verr != nil {
		ms.respondWithError(w, r, verr.asAppError())
		return
	}

	playlist, err := ms.db.CreatePlaylist(r.Context(), req.Name, req.CreatorID)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondMessage(w, http.StatusOK, fmt.Sprintf("Playlist '%s' created successfully", playlist.Name))
}

// handleGetPlaylists returns all playlists, optionally filtered by creatorId
func (ms *MusicServer) handleGetPlaylists(w http.ResponseWriter, r *http.Request) {
	var creatorID *int
	if raw := r.URL.Query().Get("creatorId"); raw != "" {
		id, verr := validateID("creator_id", raw)
		if verr != nil {
			ms.respondWithError(w, r, verr.asAppError())
			return
		}
		creatorID = &id
	}

	playlists, err := ms.db.ListPlaylists(r.Context(), creatorID)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondJSON(w, http.StatusOK, toPlaylistRecords(playlists))
}

// handleGetPlaylist returns one playlist
func (ms *MusicServer) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, verr := validateID("playlist_id", mux.Vars(r)["id"])
	if verr != nil {
		ms.respondWithError(w, r, verr.asAppError())
		return
	}

	playlist, err := ms.db.GetPlaylist(r.Context(), id)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondJSON(w, http.StatusOK, toPlaylistRecord(playlist))
}

// handleDeletePlaylist deletes a playlist and detaches its tracks
func (ms *MusicServer) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, verr := validateID("playlist_id", mux.Vars(r)["id"])
	if verr != nil {
		ms.respondWithError(w, r, verr.asAppError())
		return
	}

	if err := ms.db.DeletePlaylist(r.Context(), id); err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondMessage(w, http.StatusOK, "Playlist deleted successfully")
}

func (ms *MusicServer) decodeMembership(r *http.Request) (membershipRequest, error) {
	var req membershipRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	if verr := validatePositive("track_id", req.TrackID); verr != nil {
		return req, verr.asAppError()
	}
	if verr := validatePositive("playlist_id", req.PlaylistID); verr != nil {
		return req, verr.asAppError()
	}
	return req, nil
}

// handleAddTrackToPlaylist attaches a track to a playlist
func (ms *MusicServer) handleAddTrackToPlaylist(w http.ResponseWriter, r *http.Request) {
	req, err := ms.decodeMembership(r)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}

	if err := ms.db.AttachTrack(r.Context(), req.TrackID, req.PlaylistID); err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondMessage(w, http.StatusOK, "Track added to playlist successfully")
}

// handleRemoveTrackFromPlaylist detaches a track from a playlist
func (ms *MusicServer) handleRemoveTrackFromPlaylist(w http.ResponseWriter, r *http.Request) {
	req, err := ms.decodeMembership(r)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}

	if err := ms.db.DetachTrack(r.Context(), req.TrackID, req.PlaylistID); err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondMessage(w, http.StatusOK, "Track removed from playlist successfully")
}
