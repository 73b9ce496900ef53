// Package cachestore provides the durable SQLite tier of the translation
// cache. It implements translate.Store so a locsync.db in the XDG data
// directory survives across runs while the in-memory tier handles the
// hot path within a run.
package cachestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/minios-linux/locsync/translate"
)

var _ translate.Store = (*SQLStore)(nil)

const schema = `CREATE TABLE IF NOT EXISTS translations (
    src_lang    TEXT NOT NULL,
    tgt_lang    TEXT NOT NULL,
    hash        TEXT NOT NULL,
    source_text TEXT NOT NULL,
    translation TEXT NOT NULL,
    created_at  TEXT NOT NULL,
    PRIMARY KEY (src_lang, tgt_lang, hash)
)`

// SQLStore is a translation cache backed by a SQLite file.
type SQLStore struct {
	db  *sql.DB
	sq  sq.StatementBuilderType
	ttl time.Duration
	now func() time.Time
}

// DefaultPath returns the cache database location under the XDG data
// directory.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "locsync", "cache.db"), nil
}

// Open opens (creating if needed) the cache database at dbPath. Entries
// older than ttl are treated as absent; ttl <= 0 disables expiry.
func Open(dbPath string, ttl time.Duration) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("make cache dir: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLStore{
		db:  db,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

// Get implements translate.Store.
func (s *SQLStore) Get(ctx context.Context, sourceLang, targetLang, hash string) (string, bool, error) {
	q := s.sq.Select("translation", "created_at").
		From("translations").
		Where(sq.Eq{
			"src_lang": sourceLang,
			"tgt_lang": targetLang,
			"hash":     hash,
		}).
		Limit(1)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", false, err
	}

	var translation, created string
	row := s.db.QueryRowContext(ctx, sqlStr, args...)
	if err := row.Scan(&translation, &created); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}

	if s.ttl > 0 {
		createdAt, err := time.Parse(time.RFC3339, created)
		if err != nil || s.now().Sub(createdAt) >= s.ttl {
			return "", false, nil
		}
	}
	return translation, true, nil
}

// Put implements translate.Store. An existing row for the same key is
// overwritten with a fresh timestamp.
func (s *SQLStore) Put(ctx context.Context, sourceLang, targetLang, hash, sourceText, translation string) error {
	q := s.sq.Insert("translations").
		Columns("src_lang", "tgt_lang", "hash", "source_text", "translation", "created_at").
		Values(sourceLang, targetLang, hash, sourceText, translation, s.now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(src_lang, tgt_lang, hash) DO UPDATE SET translation=excluded.translation, created_at=excluded.created_at")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed. With
// expiry disabled it removes nothing.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UTC().Format(time.RFC3339)
	q := s.sq.Delete("translations").Where(sq.Lt{"created_at": cutoff})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	return res.RowsAffected()
}

// Clear drops every cached translation.
func (s *SQLStore) Clear(ctx context.Context) (int64, error) {
	sqlStr, args, err := s.sq.Delete("translations").ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes the cache contents for the cache CLI command.
type Stats struct {
	Entries   int64
	Languages int64
	Oldest    time.Time
}

// Stats reports entry counts and the oldest entry timestamp.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT tgt_lang), COALESCE(MIN(created_at), '') FROM translations`)
	var oldest string
	if err := row.Scan(&st.Entries, &st.Languages, &oldest); err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	if oldest != "" {
		st.Oldest, _ = time.Parse(time.RFC3339, oldest)
	}
	return st, nil
}
