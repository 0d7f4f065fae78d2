package database

import (
	"context"
	"database/sql"
	"errors"

	"soundshelf/internal/apperr"
	"soundshelf/pkg/models"

	"github.com/sirupsen/logrus"
)

// CreateTrack inserts a new, unattached track. The insert error text is
// attached as client-visible details.
func (db *Database) CreateTrack(ctx context.Context, externalName string, durationSeconds int, imageName *string) (models.Track, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	result, err := db.insertTrackStmt.ExecContext(ctx, externalName, durationSeconds, nullString(imageName))
	if err != nil {
		db.logger.WithError(err).WithField("external_name", externalName).Error("Failed to insert new track")
		return models.Track{}, apperr.Store("Failed to add track", err).WithDetails(err.Error())
	}

	id, err := result.LastInsertId()
	if err != nil {
		db.logger.WithError(err).Error("Failed to get last insert ID")
		return models.Track{}, apperr.Store("Failed to add track", err)
	}

	return models.Track{
		ID:              int(id),
		ExternalName:    externalName,
		DurationSeconds: durationSeconds,
		ImageName:       imageName,
	}, nil
}

// ListTracks returns every track ordered by ID. The result is never nil.
func (db *Database) ListTracks(ctx context.Context) ([]models.Track, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, external_name, duration_seconds, image_name, playlist_id
		FROM tracks
		ORDER BY id`)
	if err != nil {
		db.logger.WithError(err).Error("Failed to list tracks")
		return nil, apperr.Store("Failed to retrieve tracks", err)
	}
	defer rows.Close()

	tracks, err := scanTrackRows(rows)
	if err != nil {
		return nil, apperr.Store("Failed to retrieve tracks", err)
	}
	return tracks, nil
}

// GetTrackByExternalName looks a track up by its stored file name, verbatim
func (db *Database) GetTrackByExternalName(ctx context.Context, name string) (models.Track, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	track, err := scanTrack(db.getTrackByNameStmt.QueryRowContext(ctx, name))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Track{}, apperr.NotFound("Track not found")
	}
	if err != nil {
		db.logger.WithError(err).WithField("external_name", name).Error("Failed to get track")
		return models.Track{}, apperr.Store("Failed to retrieve track", err)
	}
	return track, nil
}

// DeleteTrack removes a track and decrements its playlist's counter in the
// same transaction. Deleting a missing track succeeds and reports false.
func (db *Database) DeleteTrack(ctx context.Context, name string) (bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, apperr.Store("Failed to delete track", err)
	}
	defer tx.Rollback()

	var (
		id         int
		playlistID sql.NullInt64
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, playlist_id FROM tracks WHERE external_name = ?"+db.forUpdate(), name).Scan(&id, &playlistID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Store("Failed to delete track", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id); err != nil {
		db.logger.WithError(err).WithField("external_name", name).Error("Failed to delete track")
		return false, apperr.Store("Failed to delete track", err)
	}

	if playlistID.Valid {
		if err := decrementTrackCount(ctx, tx, int(playlistID.Int64)); err != nil {
			return false, apperr.Store("Failed to delete track", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, apperr.Store("Failed to delete track", err)
	}

	db.logger.WithFields(logrus.Fields{
		"external_name": name,
		"track_id":      id,
	}).Info("Track deleted")
	return true, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(s scanner) (models.Track, error) {
	var (
		track      models.Track
		imageName  sql.NullString
		playlistID sql.NullInt64
	)
	if err := s.Scan(&track.ID, &track.ExternalName, &track.DurationSeconds, &imageName, &playlistID); err != nil {
		return models.Track{}, err
	}
	if imageName.Valid {
		track.ImageName = &imageName.String
	}
	if playlistID.Valid {
		id := int(playlistID.Int64)
		track.PlaylistID = &id
	}
	return track, nil
}

// scanTrackRows scans track result sets into a slice of models.Track.
// Callers must have already deferred rows.Close().
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	tracks := []models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
