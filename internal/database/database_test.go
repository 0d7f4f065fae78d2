package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"soundshelf/internal/apperr"
	"soundshelf/internal/auth"
	"soundshelf/internal/config"
	"soundshelf/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, opts ...Option) *Database {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "catalog.db")

	db, err := NewDatabase(cfg.Database, logging.Discard(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestNewDatabaseCreatesSchema(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestNewDatabaseReopen(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	db, err := NewDatabase(cfg.Database, logging.Discard())
	require.NoError(t, err)
	_, err = db.CreateTrack(ctx, "song1.mp3", 180, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDatabase(cfg.Database, logging.Discard())
	require.NoError(t, err)
	defer db.Close()

	track, err := db.GetTrackByExternalName(ctx, "song1.mp3")
	require.NoError(t, err)
	assert.Equal(t, 180, track.DurationSeconds)
}

func TestNewDatabaseMissingDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "missing", "catalog.db")

	_, err := NewDatabase(cfg.Database, logging.Discard())
	assert.Error(t, err)
}

func TestTrackLifecycle(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, "song1.mp3", 180, strPtr("cover.png"))
	require.NoError(t, err)
	assert.NotZero(t, track.ID)
	assert.Nil(t, track.PlaylistID)

	got, err := db.GetTrackByExternalName(ctx, "song1.mp3")
	require.NoError(t, err)
	assert.Equal(t, "song1.mp3", got.ExternalName)
	assert.Equal(t, 180, got.DurationSeconds)
	require.NotNil(t, got.ImageName)
	assert.Equal(t, "cover.png", *got.ImageName)

	deleted, err := db.DeleteTrack(ctx, "song1.mp3")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = db.GetTrackByExternalName(ctx, "song1.mp3")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	deleted, err = db.DeleteTrack(ctx, "song1.mp3")
	require.NoError(t, err, "deleting a missing track is not an error")
	assert.False(t, deleted)
}

func TestCreateTrackDuplicateName(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	_, err := db.CreateTrack(ctx, "song1.mp3", 180, nil)
	require.NoError(t, err)

	_, err = db.CreateTrack(ctx, "song1.mp3", 90, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStore))

	_, details := apperr.Message(err)
	assert.Contains(t, details, "UNIQUE", "driver error text is exposed as details")
}

func TestLookupIsVerbatim(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	_, err := db.CreateTrack(ctx, "Song1.mp3", 10, nil)
	require.NoError(t, err)

	_, err = db.GetTrackByExternalName(ctx, "song1.mp3")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = db.GetTrackByExternalName(ctx, " Song1.mp3")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListTracks(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	tracks, err := db.ListTracks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, tracks)
	assert.Empty(t, tracks)

	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		_, err := db.CreateTrack(ctx, name, 60, nil)
		require.NoError(t, err)
	}

	tracks, err = db.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "a.mp3", tracks[0].ExternalName)
	assert.Equal(t, "c.mp3", tracks[2].ExternalName)
	assert.Nil(t, tracks[0].ImageName)
}

func TestPlaylists(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	mine, err := db.CreatePlaylist(ctx, "Road trip", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, mine.TrackCount)

	_, err = db.CreatePlaylist(ctx, "Focus", 2)
	require.NoError(t, err)

	all, err := db.ListPlaylists(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	creator := 1
	filtered, err := db.ListPlaylists(ctx, &creator)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Road trip", filtered[0].Name)

	nobody := 99
	none, err := db.ListPlaylists(ctx, &nobody)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	got, err := db.GetPlaylist(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine, got)

	_, err = db.GetPlaylist(ctx, 12345)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAttachDetachRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, "song1.mp3", 180, nil)
	require.NoError(t, err)
	playlist, err := db.CreatePlaylist(ctx, "Mix", 1)
	require.NoError(t, err)

	require.NoError(t, db.AttachTrack(ctx, track.ID, playlist.ID))

	got, err := db.GetPlaylist(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TrackCount)

	attached, err := db.GetTrackByExternalName(ctx, "song1.mp3")
	require.NoError(t, err)
	require.NotNil(t, attached.PlaylistID)
	assert.Equal(t, playlist.ID, *attached.PlaylistID)

	// Attaching again does not double count
	require.NoError(t, db.AttachTrack(ctx, track.ID, playlist.ID))
	got, err = db.GetPlaylist(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TrackCount)

	require.NoError(t, db.DetachTrack(ctx, track.ID, playlist.ID))
	got, err = db.GetPlaylist(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TrackCount)

	detached, err := db.GetTrackByExternalName(ctx, "song1.mp3")
	require.NoError(t, err)
	assert.Nil(t, detached.PlaylistID)

	// Detaching an unattached track leaves the counter alone
	require.NoError(t, db.DetachTrack(ctx, track.ID, playlist.ID))
	got, err = db.GetPlaylist(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TrackCount)
}

func TestAttachMovesBetweenPlaylists(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, "song1.mp3", 180, nil)
	require.NoError(t, err)
	first, err := db.CreatePlaylist(ctx, "First", 1)
	require.NoError(t, err)
	second, err := db.CreatePlaylist(ctx, "Second", 1)
	require.NoError(t, err)

	require.NoError(t, db.AttachTrack(ctx, track.ID, first.ID))
	require.NoError(t, db.AttachTrack(ctx, track.ID, second.ID))

	p1, err := db.GetPlaylist(ctx, first.ID)
	require.NoError(t, err)
	p2, err := db.GetPlaylist(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p1.TrackCount)
	assert.Equal(t, 1, p2.TrackCount)

	// Detaching from a playlist the track is not in is a no-op
	require.NoError(t, db.DetachTrack(ctx, track.ID, first.ID))
	p2, err = db.GetPlaylist(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p2.TrackCount)
}

func TestAttachMissingRows(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, "song1.mp3", 180, nil)
	require.NoError(t, err)
	playlist, err := db.CreatePlaylist(ctx, "Mix", 1)
	require.NoError(t, err)

	err = db.AttachTrack(ctx, 9999, playlist.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = db.AttachTrack(ctx, track.ID, 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := db.GetPlaylist(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TrackCount)
}

func TestDeleteTrackDecrementsPlaylist(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	playlist, err := db.CreatePlaylist(ctx, "Mix", 1)
	require.NoError(t, err)
	for _, name := range []string{"a.mp3", "b.mp3"} {
		track, err := db.CreateTrack(ctx, name, 60, nil)
		require.NoError(t, err)
		require.NoError(t, db.AttachTrack(ctx, track.ID, playlist.ID))
	}

	_, err = db.DeleteTrack(ctx, "a.mp3")
	require.NoError(t, err)

	got, err := db.GetPlaylist(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TrackCount)
}

func TestDeletePlaylistDetachesTracks(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, "song1.mp3", 180, nil)
	require.NoError(t, err)
	playlist, err := db.CreatePlaylist(ctx, "Mix", 1)
	require.NoError(t, err)
	require.NoError(t, db.AttachTrack(ctx, track.ID, playlist.ID))

	require.NoError(t, db.DeletePlaylist(ctx, playlist.ID))

	_, err = db.GetPlaylist(ctx, playlist.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := db.GetTrackByExternalName(ctx, "song1.mp3")
	require.NoError(t, err)
	assert.Nil(t, got.PlaylistID)

	require.NoError(t, db.DeletePlaylist(ctx, playlist.ID), "deleting a missing playlist is not an error")
}

func TestUsers(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	created, err := db.CreateUser(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Empty(t, created.Password)

	user, err := db.AuthenticateUser(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Password)

	_, wrongPassword := db.AuthenticateUser(ctx, "alice", "hunter3")
	_, unknownUser := db.AuthenticateUser(ctx, "bob", "hunter2")
	assert.True(t, apperr.Is(wrongPassword, apperr.KindUnauthorized))
	assert.True(t, apperr.Is(unknownUser, apperr.KindUnauthorized))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	_, err = db.CreateUser(ctx, "alice", "other")
	assert.True(t, apperr.Is(err, apperr.KindStore))

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Users)
}

func TestUsersBcrypt(t *testing.T) {
	db := newTestDatabase(t, WithPasswords(auth.BcryptHasher{Cost: 4}))
	ctx := context.Background()

	_, err := db.CreateUser(ctx, "alice", "hunter2")
	require.NoError(t, err)

	var stored string
	require.NoError(t, db.conn.QueryRow("SELECT password FROM users WHERE username = ?", "alice").Scan(&stored))
	assert.NotEqual(t, "hunter2", stored)

	_, err = db.AuthenticateUser(ctx, "alice", "hunter2")
	assert.NoError(t, err)
	_, err = db.AuthenticateUser(ctx, "alice", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestTrackCountCannotGoNegative(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	playlist, err := db.CreatePlaylist(ctx, "Mix", 1)
	require.NoError(t, err)

	_, err = db.conn.ExecContext(ctx, "UPDATE playlists SET track_count = -1 WHERE id = ?", playlist.ID)
	assert.Error(t, err, "the store rejects a negative counter")

	got, err := db.GetPlaylist(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TrackCount)
}

func TestSchemasCheckCounters(t *testing.T) {
	for name, schema := range map[string][]string{"sqlite3": sqliteSchema, "mysql": mysqlSchema} {
		ddl := strings.Join(schema, "\n")
		assert.Contains(t, ddl, "CHECK (track_count >= 0)", name)
		assert.Contains(t, ddl, "CHECK (duration_seconds >= 0)", name)
	}
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", sqliteDSN("a.db"))
	assert.Equal(t, "a.db?cache=shared&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", sqliteDSN("a.db?cache=shared"))
}
