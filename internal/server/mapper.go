package server

import (
	"strings"

	"soundshelf/pkg/models"
)

// imageURL joins the public image base URL and a stored image name
func imageURL(baseURL, imageName string) string {
	return strings.TrimRight(baseURL, "/") + "/" + imageName
}

// toTrackRecord maps a stored track to its wire form. imageUrl is derived
// only when the track has an image.
func toTrackRecord(t models.Track, imageBaseURL string) models.TrackRecord {
	record := models.TrackRecord{
		ID:              t.ID,
		ExternalName:    t.ExternalName,
		DurationSeconds: t.DurationSeconds,
		ImageName:       t.ImageName,
		PlaylistID:      t.PlaylistID,
	}
	if t.ImageName != nil {
		url := imageURL(imageBaseURL, *t.ImageName)
		record.ImageURL = &url
	}
	return record
}

func toTrackRecords(tracks []models.Track, imageBaseURL string) []models.TrackRecord {
	records := make([]models.TrackRecord, 0, len(tracks))
	for _, t := range tracks {
		records = append(records, toTrackRecord(t, imageBaseURL))
	}
	return records
}

func toPlaylistRecord(p models.Playlist) models.PlaylistRecord {
	return models.PlaylistRecord{
		ID:         p.ID,
		Name:       p.Name,
		CreatorID:  p.CreatorID,
		TrackCount: p.TrackCount,
	}
}

func toPlaylistRecords(playlists []models.Playlist) []models.PlaylistRecord {
	records := make([]models.PlaylistRecord, 0, len(playlists))
	for _, p := range playlists {
		records = append(records, toPlaylistRecord(p))
	}
	return records
}

// toUserRecord drops the password
func toUserRecord(u models.User) models.UserRecord {
	return models.UserRecord{ID: u.ID, Username: u.Username}
}
