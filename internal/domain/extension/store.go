package extension

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store persists extension records in sqlite. The registry keeps records
// in memory; the store is the durable copy loaded at startup.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed creates) the database at path. Use
// ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each new connection to ":memory:" gets its own empty database, so
	// memory stores pin the pool to a single connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// All returns every stored record.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, version, description, enabled, source_path, packed_size, installed_at
		 FROM extensions`)
	if err != nil {
		return nil, fmt.Errorf("query extensions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var enabled int
		var installedAt string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Description,
			&enabled, &rec.SourcePath, &rec.PackedSize, &installedAt); err != nil {
			return nil, fmt.Errorf("scan extension: %w", err)
		}
		rec.Enabled = enabled != 0
		rec.InstalledAt = parseStoredTime(installedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Put inserts or replaces a record.
func (s *Store) Put(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extensions (id, name, version, description, enabled, source_path, packed_size, installed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   version = excluded.version,
		   description = excluded.description,
		   enabled = excluded.enabled,
		   source_path = excluded.source_path,
		   packed_size = excluded.packed_size`,
		rec.ID, rec.Name, rec.Version, rec.Description,
		boolToInt(rec.Enabled), rec.SourcePath, rec.PackedSize,
		rec.InstalledAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put extension %s: %w", rec.ID, err)
	}
	return nil
}

// SetEnabled flips the enabled flag. Reports whether the row existed.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extensions SET enabled = ? WHERE id = ?`, boolToInt(enabled), id)
	if err != nil {
		return false, fmt.Errorf("toggle extension %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a record. Reports whether the row existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM extensions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete extension %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseStoredTime(v string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t
	}
	// Older rows may carry sqlite's own timestamp rendering.
	if t, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
		return t
	}
	return time.Time{}
}
