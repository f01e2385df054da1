// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package urlcache persists canonical URLs with the date they were first
// scraped, so that a URL seen on an earlier day is reported as a repeat
// while repeated sightings on the same day are not.
package urlcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// DateLayout is the format of scrape dates stored in the cache.
const DateLayout = "2006-01-02"

// maxRowsPerStatement bounds the rows bound into one IN list or VALUES
// clause, keeping statements under SQLite's host parameter limit.
const maxRowsPerStatement = 400

// nowFunc returns the current time. Tests override it to pin "today".
var nowFunc = time.Now

// ErrSchemaMismatch is returned when the database holds an articles table
// whose columns differ from the expected layout.
var ErrSchemaMismatch = errors.New("url cache schema mismatch")

// Entry is one URL to record together with its scrape date.
type Entry struct {
	URL  string
	Date string
}

// Store manages the URL cache SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the cache database at path, creating the parent
// directory and the schema when they do not exist. An existing articles table
// with a different layout fails with ErrSchemaMismatch.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Today returns the current date in DateLayout.
func (s *Store) Today() string {
	return nowFunc().Format(DateLayout)
}

func (s *Store) createSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		canonical_url TEXT NOT NULL UNIQUE,
		scrape_date TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating articles table: %w", err)
	}

	// A pre-existing table must match before indexes reference its columns.
	if err := s.checkSchema(); err != nil {
		return err
	}

	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_canonical_url ON articles(canonical_url)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_scrape_date ON articles(scrape_date)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// checkSchema verifies that the articles table has exactly the expected columns.
func (s *Store) checkSchema() error {
	rows, err := s.db.Query(`PRAGMA table_info(articles)`)
	if err != nil {
		return fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	want := map[string]string{
		"id":            "INTEGER",
		"canonical_url": "TEXT",
		"scrape_date":   "TEXT",
	}
	seen := 0
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning table info: %w", err)
		}
		wantType, ok := want[name]
		if !ok {
			return fmt.Errorf("%w: unexpected column %q", ErrSchemaMismatch, name)
		}
		if !strings.EqualFold(colType, wantType) {
			return fmt.Errorf("%w: column %q has type %s, want %s", ErrSchemaMismatch, name, colType, wantType)
		}
		seen++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating table info: %w", err)
	}
	if seen != len(want) {
		return fmt.Errorf("%w: found %d of %d columns", ErrSchemaMismatch, seen, len(want))
	}
	return nil
}

// Exists reports whether url was first recorded before today.
func (s *Store) Exists(ctx context.Context, url string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM articles WHERE canonical_url = ? AND scrape_date < ?`,
		url, s.Today(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", url, err)
	}
	return n > 0, nil
}

// InsertIfNew records url with date when it is not in the cache and returns
// true. When url is already present nothing is written: the result is true
// if it was first recorded today and false if it was recorded on an earlier
// day.
func (s *Store) InsertIfNew(ctx context.Context, url, date string) (bool, error) {
	if err := validateDate(date); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (canonical_url, scrape_date) VALUES (?, ?)
		 ON CONFLICT(canonical_url) DO NOTHING`,
		url, date,
	)
	if err != nil {
		return false, fmt.Errorf("inserting %s: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting %s: %w", url, err)
	}
	if n == 1 {
		return true, nil
	}

	// Already present, possibly written by a concurrent caller between our
	// statements. The stored row decides.
	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT scrape_date FROM articles WHERE canonical_url = ?`, url,
	).Scan(&stored)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", url, err)
	}
	return stored == s.Today(), nil
}

// InsertManyIfNew applies the InsertIfNew rule to a batch and returns one
// result per entry in input order. Within the batch only the first
// occurrence of a URL is considered; every later occurrence is false. New
// URLs are written in one transaction.
func (s *Store) InsertManyIfNew(ctx context.Context, entries []Entry) ([]bool, error) {
	results := make([]bool, len(entries))
	if len(entries) == 0 {
		return results, nil
	}

	firstAt := make(map[string]int, len(entries))
	var unique []string
	for i, e := range entries {
		if err := validateDate(e.Date); err != nil {
			return nil, err
		}
		if _, seen := firstAt[e.URL]; seen {
			continue
		}
		firstAt[e.URL] = i
		unique = append(unique, e.URL)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stored, err := lookupDates(ctx, tx, unique)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	var fresh []Entry
	for i, e := range entries {
		if firstAt[e.URL] != i {
			continue
		}
		if date, ok := stored[e.URL]; ok {
			results[i] = date == today
			continue
		}
		results[i] = true
		fresh = append(fresh, e)
	}

	if err := insertEntries(ctx, tx, fresh); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	return results, nil
}

// lookupDates returns the stored scrape date for each of urls that is present.
func lookupDates(ctx context.Context, tx *sql.Tx, urls []string) (map[string]string, error) {
	stored := make(map[string]string, len(urls))
	for start := 0; start < len(urls); start += maxRowsPerStatement {
		end := min(start+maxRowsPerStatement, len(urls))
		chunk := urls[start:end]

		query, args, err := sq.Select("canonical_url", "scrape_date").
			From("articles").
			Where(sq.Eq{"canonical_url": chunk}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("building lookup: %w", err)
		}

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("looking up urls: %w", err)
		}
		for rows.Next() {
			var u, d string
			if err := rows.Scan(&u, &d); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning url row: %w", err)
			}
			stored[u] = d
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating url rows: %w", err)
		}
	}
	return stored, nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, entries []Entry) error {
	for start := 0; start < len(entries); start += maxRowsPerStatement {
		end := min(start+maxRowsPerStatement, len(entries))
		chunk := entries[start:end]

		insert := sq.Insert("articles").Columns("canonical_url", "scrape_date")
		for _, e := range chunk {
			insert = insert.Values(e.URL, e.Date)
		}
		query, args, err := insert.Suffix("ON CONFLICT(canonical_url) DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("building insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting batch: %w", err)
		}
	}
	return nil
}

// PurgeOlderThan deletes rows whose scrape date is more than days before
// today and returns the number removed.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("retention days must be >= 0, got %d", days)
	}
	cutoff := nowFunc().AddDate(0, 0, -days).Format(DateLayout)

	query, args, err := sq.Delete("articles").Where(sq.Lt{"scrape_date": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building purge: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purging before %s: %w", cutoff, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging before %s: %w", cutoff, err)
	}
	return n, nil
}

// RemoveAll deletes every row.
func (s *Store) RemoveAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM articles`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Count returns the number of cached URLs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

func validateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid scrape date %q: want YYYY-MM-DD", date)
	}
	return nil
}
