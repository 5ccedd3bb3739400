package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/001_summaries.sql
var summariesSchema string

// Store is the local sqlite mirror of conversation summaries. It lets a
// restarted client show history immediately, before the first network fetch
// completes.
type Store struct {
	path string
	db   *sql.DB
}

// OpenStore opens (creating if needed) the summary database at path and runs
// migrations.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	store := &Store{path: path, db: db}
	if err := store.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all cached summaries, newest first.
func (s *Store) Load(ctx context.Context) ([]Summary, error) {
	query := `SELECT id, thread_id, title, story_id, updated_at FROM summaries ORDER BY updated_at DESC`
	var summaries []Summary
	if err := sqlscan.Select(ctx, s.db, &summaries, query); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Upsert writes one summary, keeping whichever row is newer.
func (s *Store) Upsert(ctx context.Context, sum Summary) error {
	query := `INSERT INTO summaries (thread_id, id, title, story_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			id = excluded.id,
			title = excluded.title,
			story_id = excluded.story_id,
			updated_at = excluded.updated_at
		WHERE excluded.updated_at >= summaries.updated_at`
	_, err := s.db.ExecContext(ctx, query, sum.ThreadID, sum.ID, sum.Title, sum.StoryID, sum.UpdatedAt)
	return err
}

// UpsertAll writes a batch of summaries in one transaction.
func (s *Store) UpsertAll(ctx context.Context, summaries []Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	query := `INSERT INTO summaries (thread_id, id, title, story_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			id = excluded.id,
			title = excluded.title,
			story_id = excluded.story_id,
			updated_at = excluded.updated_at
		WHERE excluded.updated_at >= summaries.updated_at`
	for _, sum := range summaries {
		if _, err := tx.ExecContext(ctx, query, sum.ThreadID, sum.ID, sum.Title, sum.StoryID, sum.UpdatedAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// runMigrations applies pending schema migrations.
func (s *Store) runMigrations() error {
	createMigrationsTable := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.Exec(createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := s.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, extractUpMigration(summariesSchema)},
	}

	for _, migration := range migrations {
		if applied[migration.version] {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if _, err := tx.Exec(migration.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.version, err)
		}
	}

	return nil
}

// extractUpMigration extracts the UP statements from goose-format SQL.
func extractUpMigration(content string) string {
	var up []string
	inUp := false
	inStatement := false

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.Contains(line, "-- +goose Up"):
			inUp = true
		case strings.Contains(line, "-- +goose Down"):
			return strings.Join(up, "\n")
		case strings.Contains(line, "-- +goose StatementBegin"):
			inStatement = true
		case strings.Contains(line, "-- +goose StatementEnd"):
			inStatement = false
		default:
			if inUp && inStatement {
				up = append(up, line)
			}
		}
	}
	return strings.Join(up, "\n")
}
