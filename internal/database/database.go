package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"soundshelf/internal/auth"
	"soundshelf/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps a *sql.DB and exposes the catalog operations. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn         *sql.DB
	logger       *logrus.Logger
	driver       string
	queryTimeout time.Duration
	passwords    auth.Hasher

	// Prepared statements for the hot read/insert paths
	insertTrackStmt    *sql.Stmt
	getTrackByNameStmt *sql.Stmt
	insertPlaylistStmt *sql.Stmt
	getPlaylistStmt    *sql.Stmt
	insertUserStmt     *sql.Stmt
	getUserByNameStmt  *sql.Stmt
}

// Option customizes a Database at construction time
type Option func(*Database)

// WithPasswords sets the policy used to store and verify user passwords.
// The default stores them verbatim.
func WithPasswords(h auth.Hasher) Option {
	return func(db *Database) {
		db.passwords = h
	}
}

// Stats holds row counts for each catalog table
type Stats struct {
	Tracks    int `json:"tracks"`
	Playlists int `json:"playlists"`
	Users     int `json:"users"`
}

// NewDatabase opens the configured database, creates the schema if needed
// and prepares statements. Caller should Close() it when finished.
func NewDatabase(cfg config.DatabaseConfig, logger *logrus.Logger, opts ...Option) (*Database, error) {
	dsn := cfg.DSN
	if cfg.Driver == "sqlite3" {
		dsn = sqliteDSN(cfg.DSN)
	}

	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxConnections)
	conn.SetMaxIdleConns(max(1, cfg.MaxConnections/2))
	conn.SetConnMaxLifetime(15 * time.Minute)

	db := &Database{
		conn:         conn,
		logger:       logger,
		driver:       cfg.Driver,
		queryTimeout: cfg.Timeout(),
		passwords:    auth.PlainHasher{},
	}
	for _, opt := range opts {
		opt(db)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		db.applyPragmas(ctx)
	}

	if err := db.createTables(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("driver", cfg.Driver).Info("Database initialized successfully")
	return db, nil
}

// sqliteDSN adds the connection parameters every pooled connection needs.
// Pragmas run through Exec only reach a single connection, so foreign keys
// and the busy timeout go in the DSN.
func sqliteDSN(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func (db *Database) applyPragmas(ctx context.Context) {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
	}

	for _, pragma := range pragmas {
		if _, err := db.conn.ExecContext(ctx, pragma); err != nil {
			db.logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}
}

// createTables creates tables and indices if they do not already exist. This
// is idempotent and safe to call multiple times.
func (db *Database) createTables(ctx context.Context) error {
	statements := sqliteSchema
	if db.driver == "mysql" {
		statements = mysqlSchema
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		creator_id INTEGER NOT NULL,
		track_count INTEGER NOT NULL DEFAULT 0 CHECK (track_count >= 0)
	);`,
	`CREATE TABLE IF NOT EXISTS tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_name TEXT NOT NULL UNIQUE,
		duration_seconds INTEGER NOT NULL CHECK (duration_seconds >= 0),
		image_name TEXT,
		playlist_id INTEGER REFERENCES playlists(id) ON DELETE SET NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_tracks_playlist ON tracks(playlist_id);",
	"CREATE INDEX IF NOT EXISTS idx_playlists_creator ON playlists(creator_id);",
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS playlists (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		creator_id INT NOT NULL,
		track_count INT NOT NULL DEFAULT 0 CHECK (track_count >= 0),
		INDEX idx_playlists_creator (creator_id)
	) ENGINE=InnoDB;`,
	`CREATE TABLE IF NOT EXISTS tracks (
		id INT AUTO_INCREMENT PRIMARY KEY,
		external_name VARCHAR(255) NOT NULL UNIQUE,
		duration_seconds INT NOT NULL CHECK (duration_seconds >= 0),
		image_name VARCHAR(255) NULL,
		playlist_id INT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE SET NULL
	) ENGINE=InnoDB;`,
	`CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(255) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL
	) ENGINE=InnoDB;`,
}

// prepareStatements prepares commonly used SQL statements
func (db *Database) prepareStatements(ctx context.Context) error {
	var err error

	db.insertTrackStmt, err = db.conn.PrepareContext(ctx, `
		INSERT INTO tracks (external_name, duration_seconds, image_name)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert track statement: %w", err)
	}

	db.getTrackByNameStmt, err = db.conn.PrepareContext(ctx, `
		SELECT id, external_name, duration_seconds, image_name, playlist_id
		FROM tracks WHERE external_name = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get track statement: %w", err)
	}

	db.insertPlaylistStmt, err = db.conn.PrepareContext(ctx, `
		INSERT INTO playlists (name, creator_id, track_count)
		VALUES (?, ?, 0)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert playlist statement: %w", err)
	}

	db.getPlaylistStmt, err = db.conn.PrepareContext(ctx, `
		SELECT id, name, creator_id, track_count
		FROM playlists WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get playlist statement: %w", err)
	}

	db.insertUserStmt, err = db.conn.PrepareContext(ctx, `
		INSERT INTO users (username, password)
		VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert user statement: %w", err)
	}

	db.getUserByNameStmt, err = db.conn.PrepareContext(ctx, `
		SELECT id, username, password
		FROM users WHERE username = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get user statement: %w", err)
	}

	return nil
}

// withTimeout bounds a single store operation
func (db *Database) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.queryTimeout)
}

// forUpdate returns the row-lock clause for reads inside a transaction.
// SQLite transactions are opened IMMEDIATE instead.
func (db *Database) forUpdate() string {
	if db.driver == "mysql" {
		return " FOR UPDATE"
	}
	return ""
}

// Ping checks that the database is reachable
func (db *Database) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Stats returns row counts for each catalog table
func (db *Database) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var stats Stats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tracks),
			(SELECT COUNT(*) FROM playlists),
			(SELECT COUNT(*) FROM users)`).Scan(&stats.Tracks, &stats.Playlists, &stats.Users)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count catalog rows: %w", err)
	}
	return stats, nil
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.insertTrackStmt,
		db.getTrackByNameStmt,
		db.insertPlaylistStmt,
		db.getPlaylistStmt,
		db.insertUserStmt,
		db.getUserByNameStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
