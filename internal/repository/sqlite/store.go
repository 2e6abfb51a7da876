package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rrens/chatdesk/internal/cache"
	_ "modernc.org/sqlite"
)

// Store persists cache entries in a local SQLite file so a restarted
// console session finds its last snapshots
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at path
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	query := `SELECT payload, written_at, dirty FROM snapshots WHERE key = ?`

	var (
		payload   []byte
		writtenAt int64
		dirty     bool
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload, &writtenAt, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return cache.Entry{
		Key:       key,
		Payload:   payload,
		WrittenAt: time.Unix(0, writtenAt),
		Dirty:     dirty,
	}, true, nil
}

func (s *Store) Put(ctx context.Context, entry cache.Entry) error {
	query := `
		INSERT INTO snapshots (key, payload, written_at, dirty)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			written_at = excluded.written_at,
			dirty = excluded.dirty
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.Key,
		[]byte(entry.Payload),
		entry.WrittenAt.UnixNano(),
		entry.Dirty,
	)
	if err != nil {
		return fmt.Errorf("failed to put snapshot: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *Store) Flush(ctx context.Context, prefix string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE key LIKE ? ESCAPE '\'`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to flush snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Ping checks the database file is usable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
