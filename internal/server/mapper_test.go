package server

import (
	"encoding/json"
	"testing"

	"soundshelf/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTrackRecord(t *testing.T) {
	cover := "cover.png"
	playlist := 4

	tests := []struct {
		name    string
		track   models.Track
		baseURL string
		wantURL *string
	}{
		{
			name:    "with image",
			track:   models.Track{ID: 1, ExternalName: "song1.mp3", DurationSeconds: 180, ImageName: &cover},
			baseURL: "/media/images",
			wantURL: strPtr("/media/images/cover.png"),
		},
		{
			name:    "base URL with trailing slash",
			track:   models.Track{ID: 1, ExternalName: "song1.mp3", DurationSeconds: 180, ImageName: &cover},
			baseURL: "https://cdn.example.com/images/",
			wantURL: strPtr("https://cdn.example.com/images/cover.png"),
		},
		{
			name:    "without image",
			track:   models.Track{ID: 2, ExternalName: "song2.mp3", DurationSeconds: 60, PlaylistID: &playlist},
			baseURL: "/media/images",
			wantURL: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := toTrackRecord(tt.track, tt.baseURL)
			assert.Equal(t, tt.track.ID, record.ID)
			assert.Equal(t, tt.track.ExternalName, record.ExternalName)
			assert.Equal(t, tt.track.DurationSeconds, record.DurationSeconds)
			assert.Equal(t, tt.track.ImageName, record.ImageName)
			assert.Equal(t, tt.track.PlaylistID, record.PlaylistID)
			assert.Equal(t, tt.wantURL, record.ImageURL)
		})
	}
}

func TestTrackRecordJSON(t *testing.T) {
	data, err := json.Marshal(toTrackRecord(models.Track{ID: 3, ExternalName: "a.mp3", DurationSeconds: 42}, "/media/images"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"externalName":"a.mp3","durationSeconds":42}`, string(data))
}

func TestToTrackRecordsNeverNil(t *testing.T) {
	records := toTrackRecords(nil, "/media/images")
	require.NotNil(t, records)

	data, err := json.Marshal(records)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestToPlaylistRecords(t *testing.T) {
	records := toPlaylistRecords([]models.Playlist{{ID: 1, Name: "Mix", CreatorID: 9, TrackCount: 2}})
	assert.Equal(t, []models.PlaylistRecord{{ID: 1, Name: "Mix", CreatorID: 9, TrackCount: 2}}, records)
}

func TestToUserRecordDropsPassword(t *testing.T) {
	data, err := json.Marshal(toUserRecord(models.User{ID: 5, Username: "alice", Password: "hunter2"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"username":"alice"}`, string(data))
}

func strPtr(s string) *string { return &s }
