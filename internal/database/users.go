package database

import (
	"context"
	"database/sql"
	"errors"

	"soundshelf/internal/apperr"
	"soundshelf/pkg/models"
)

// errBadCredentials is returned for every authentication mismatch so callers
// cannot tell an unknown username from a wrong password
var errBadCredentials = apperr.Unauthorized("Invalid username or password")

// CreateUser stores a new account. A duplicate username is a store error.
func (db *Database) CreateUser(ctx context.Context, username, password string) (models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	stored, err := db.passwords.Hash(password)
	if err != nil {
		return models.User{}, apperr.Store("Failed to create user", err)
	}

	result, err := db.insertUserStmt.ExecContext(ctx, username, stored)
	if err != nil {
		db.logger.WithError(err).WithField("username", username).Error("Failed to insert user")
		return models.User{}, apperr.Store("Failed to create user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.User{}, apperr.Store("Failed to create user", err)
	}

	return models.User{ID: int(id), Username: username}, nil
}

// AuthenticateUser returns the account matching both username and password.
// The returned user never carries the password.
func (db *Database) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var (
		user   models.User
		stored string
	)
	err := db.getUserByNameStmt.QueryRowContext(ctx, username).Scan(&user.ID, &user.Username, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, errBadCredentials
	}
	if err != nil {
		db.logger.WithError(err).Error("Failed to look up user")
		return models.User{}, apperr.Store("Failed to authenticate user", err)
	}

	if !db.passwords.Verify(stored, password) {
		return models.User{}, errBadCredentials
	}
	return user, nil
}
