package database

import (
	"context"
	"database/sql"
	"errors"

	"soundshelf/internal/apperr"
	"soundshelf/pkg/models"

	"github.com/sirupsen/logrus"
)

// CreatePlaylist inserts an empty playlist. creatorID is not checked against
// the users table.
func (db *Database) CreatePlaylist(ctx context.Context, name string, creatorID int) (models.Playlist, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	result, err := db.insertPlaylistStmt.ExecContext(ctx, name, creatorID)
	if err != nil {
		db.logger.WithError(err).WithField("name", name).Error("Failed to insert playlist")
		return models.Playlist{}, apperr.Store("Failed to create playlist", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Playlist{}, apperr.Store("Failed to create playlist", err)
	}

	return models.Playlist{ID: int(id), Name: name, CreatorID: creatorID}, nil
}

// ListPlaylists returns all playlists, or only those of creatorID when set
func (db *Database) ListPlaylists(ctx context.Context, creatorID *int) ([]models.Playlist, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	query := "SELECT id, name, creator_id, track_count FROM playlists"
	var args []any
	if creatorID != nil {
		query += " WHERE creator_id = ?"
		args = append(args, *creatorID)
	}
	query += " ORDER BY id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		db.logger.WithError(err).Error("Failed to list playlists")
		return nil, apperr.Store("Failed to retrieve playlists", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatorID, &p.TrackCount); err != nil {
			return nil, apperr.Store("Failed to retrieve playlists", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("Failed to retrieve playlists", err)
	}
	return playlists, nil
}

// GetPlaylist returns a single playlist by ID
func (db *Database) GetPlaylist(ctx context.Context, id int) (models.Playlist, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var p models.Playlist
	err := db.getPlaylistStmt.QueryRowContext(ctx, id).Scan(&p.ID, &p.Name, &p.CreatorID, &p.TrackCount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, apperr.NotFound("Playlist not found")
	}
	if err != nil {
		db.logger.WithError(err).WithField("playlist_id", id).Error("Failed to get playlist")
		return models.Playlist{}, apperr.Store("Failed to retrieve playlist", err)
	}
	return p, nil
}

// DeletePlaylist removes a playlist and detaches its tracks. Deleting a
// missing playlist succeeds.
func (db *Database) DeletePlaylist(ctx context.Context, id int) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Store("Failed to delete playlist", err)
	}
	defer tx.Rollback()

	detached, err := tx.ExecContext(ctx, "UPDATE tracks SET playlist_id = NULL WHERE playlist_id = ?", id)
	if err != nil {
		return apperr.Store("Failed to delete playlist", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id); err != nil {
		db.logger.WithError(err).WithField("playlist_id", id).Error("Failed to delete playlist")
		return apperr.Store("Failed to delete playlist", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Store("Failed to delete playlist", err)
	}

	n, _ := detached.RowsAffected()
	db.logger.WithFields(logrus.Fields{
		"playlist_id":     id,
		"tracks_detached": n,
	}).Info("Playlist deleted")
	return nil
}

// AttachTrack points a track at a playlist and keeps both playlists'
// counters in step. Attaching to the current playlist is a no-op.
func (db *Database) AttachTrack(ctx context.Context, trackID, playlistID int) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Store("Failed to add track to playlist", err)
	}
	defer tx.Rollback()

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT playlist_id FROM tracks WHERE id = ?"+db.forUpdate(), trackID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Track not found")
	}
	if err != nil {
		return apperr.Store("Failed to add track to playlist", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM playlists WHERE id = ?", playlistID).Scan(&exists)
	if err != nil {
		return apperr.Store("Failed to add track to playlist", err)
	}
	if exists == 0 {
		return apperr.NotFound("Playlist not found")
	}

	if current.Valid && int(current.Int64) == playlistID {
		return nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE tracks SET playlist_id = ? WHERE id = ?", playlistID, trackID); err != nil {
		return apperr.Store("Failed to add track to playlist", err)
	}
	if current.Valid {
		if err := decrementTrackCount(ctx, tx, int(current.Int64)); err != nil {
			return apperr.Store("Failed to add track to playlist", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE playlists SET track_count = track_count + 1 WHERE id = ?", playlistID); err != nil {
		return apperr.Store("Failed to add track to playlist", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Store("Failed to add track to playlist", err)
	}

	fields := logrus.Fields{"track_id": trackID, "playlist_id": playlistID}
	if current.Valid {
		fields["previous_playlist_id"] = current.Int64
	}
	db.logger.WithFields(fields).Debug("Track attached to playlist")
	return nil
}

// DetachTrack clears a track's playlist only when it currently belongs to
// playlistID; any other state is a no-op.
func (db *Database) DetachTrack(ctx context.Context, trackID, playlistID int) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Store("Failed to remove track from playlist", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE tracks SET playlist_id = NULL WHERE id = ? AND playlist_id = ?", trackID, playlistID)
	if err != nil {
		return apperr.Store("Failed to remove track from playlist", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperr.Store("Failed to remove track from playlist", err)
	}
	if n == 0 {
		return nil
	}

	if err := decrementTrackCount(ctx, tx, playlistID); err != nil {
		return apperr.Store("Failed to remove track from playlist", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Store("Failed to remove track from playlist", err)
	}

	db.logger.WithFields(logrus.Fields{
		"track_id":    trackID,
		"playlist_id": playlistID,
	}).Debug("Track detached from playlist")
	return nil
}

func decrementTrackCount(ctx context.Context, tx *sql.Tx, playlistID int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE playlists SET track_count = track_count - 1 WHERE id = ? AND track_count > 0", playlistID)
	return err
}
