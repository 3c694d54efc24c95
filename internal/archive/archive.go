// Package archive persists snapshot documents to a SQL database, so
// registry state can be captured per build and compared later. It
// works against SQLite for local use and PostgreSQL for shared
// archives; the caller imports the driver it wants.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/declkit/declkit/runtime/mirror"
)

var (
	// ErrNotFound is returned when a snapshot is not in the archive
	ErrNotFound = errors.New("snapshot not found")
)

// Archive stores snapshot documents in a SQL database.
type Archive struct {
	db *sql.DB
}

// Entry describes one archived snapshot without its document body.
type Entry struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	Generated time.Time `json:"generated"`
	Classes   int       `json:"classes"`
	SavedAt   time.Time `json:"saved_at"`
}

// Open connects to the database and verifies the connection. Driver is
// a registered database/sql driver name, typically "sqlite3" or "pgx".
func Open(driver, dsn string) (*Archive, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}

	return New(db), nil
}

// New wraps an existing database connection.
func New(db *sql.DB) *Archive {
	return &Archive{db: db}
}

// Initialize ensures the snapshots table exists. Safe to call more
// than once.
func (a *Archive) Initialize(ctx context.Context) error {
	// Generic column types keep the DDL valid on both SQLite and
	// PostgreSQL.
	table := `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	version TEXT NOT NULL,
	generated TIMESTAMP NOT NULL,
	class_count INTEGER NOT NULL,
	document TEXT NOT NULL,
	saved_at TIMESTAMP NOT NULL
)`
	if _, err := a.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to initialize snapshots table: %w", err)
	}

	index := `
CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at
ON snapshots(saved_at)`
	if _, err := a.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to initialize snapshots index: %w", err)
	}

	return nil
}

// Save stores a snapshot document.
func (a *Archive) Save(ctx context.Context, snap *mirror.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snap.ID == "" {
		return fmt.Errorf("snapshot has no id")
	}

	document, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.ID, err)
	}

	query := `
INSERT INTO snapshots (id, version, generated, class_count, document, saved_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = a.db.ExecContext(ctx, query,
		snap.ID, snap.Version, snap.Generated.UTC(), len(snap.Classes),
		string(document), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}

	return nil
}

// Load retrieves a snapshot document by id.
func (a *Archive) Load(ctx context.Context, id string) (*mirror.Snapshot, error) {
	query := `SELECT document FROM snapshots WHERE id = $1`

	var document string
	err := a.db.QueryRowContext(ctx, query, id).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	return decodeDocument(id, document)
}

// LoadLatest retrieves the most recently saved snapshot.
func (a *Archive) LoadLatest(ctx context.Context) (*mirror.Snapshot, error) {
	query := `
SELECT id, document FROM snapshots
ORDER BY saved_at DESC
LIMIT 1`

	var id, document string
	err := a.db.QueryRowContext(ctx, query).Scan(&id, &document)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}

	return decodeDocument(id, document)
}

// List returns archived snapshots, newest first.
func (a *Archive) List(ctx context.Context) ([]Entry, error) {
	query := `
SELECT id, version, generated, class_count, saved_at
FROM snapshots
ORDER BY saved_at DESC`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Version, &e.Generated, &e.Classes, &e.SavedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot entries: %w", err)
	}

	return entries, nil
}

// Delete removes a snapshot from the archive.
func (a *Archive) Delete(ctx context.Context, id string) error {
	result, err := a.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Prune removes all but the newest keep snapshots, returning the
// number deleted.
func (a *Archive) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep cannot be negative")
	}

	query := `
DELETE FROM snapshots
WHERE id NOT IN (
	SELECT id FROM snapshots
	ORDER BY saved_at DESC
	LIMIT $1
)`
	result, err := a.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}

	return int(affected), nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func decodeDocument(id, document string) (*mirror.Snapshot, error) {
	var snap mirror.Snapshot
	if err := json.Unmarshal([]byte(document), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}
