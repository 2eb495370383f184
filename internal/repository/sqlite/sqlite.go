// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure Go driver, so the dev API builds without a C
// toolchain. Use ":memory:" for tests and a file path otherwise.
//
// STORAGE CONVENTIONS:
//   - ids are xid strings
//   - tag lists and expertise tags are JSON arrays in TEXT columns, queried
//     with json_each
//   - timestamps are written in UTC in SQLite's text format, so string
//     comparison orders them
//   - article content is the raw editor JSON
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"
)

// DB wraps the connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs the migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", withTimeFormat(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and every ":memory:" connection
	// is a separate database. One connection avoids both problems.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// withTimeFormat asks the driver to write times in SQLite's own format so
// they sort as text and date functions can read them.
func withTimeFormat(dsn string) string {
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_time_format=sqlite"
	}
	return dsn + "?_time_format=sqlite"
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Stats reports connection pool statistics for the metrics collector.
func (db *DB) Stats() sql.DBStats {
	return db.conn.Stats()
}

// Ping checks the database is reachable. Used by /healthz.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id               TEXT PRIMARY KEY,
				email            TEXT NOT NULL UNIQUE COLLATE NOCASE,
				username         TEXT NOT NULL UNIQUE,
				default_username TEXT NOT NULL DEFAULT '',
				display_name     TEXT NOT NULL DEFAULT '',
				password_hash    TEXT NOT NULL DEFAULT '',
				github_id        INTEGER UNIQUE,
				github_username  TEXT NOT NULL DEFAULT '',
				avatar_url       TEXT NOT NULL DEFAULT '',
				bio              TEXT NOT NULL DEFAULT '',
				company          TEXT NOT NULL DEFAULT '',
				location         TEXT NOT NULL DEFAULT '',
				expertise_tags   TEXT NOT NULL DEFAULT '[]',
				created_at       DATETIME NOT NULL,
				updated_at       DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
		`},
		{"articles", `
			CREATE TABLE IF NOT EXISTS articles (
				id           TEXT PRIMARY KEY,
				title        TEXT NOT NULL,
				slug         TEXT NOT NULL UNIQUE,
				summary      TEXT NOT NULL DEFAULT '',
				content      TEXT NOT NULL DEFAULT '{}',
				tags         TEXT NOT NULL DEFAULT '[]',
				status       TEXT NOT NULL DEFAULT 'draft',
				author_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				view_count   INTEGER NOT NULL DEFAULT 0,
				like_count   INTEGER NOT NULL DEFAULT 0,
				published_at DATETIME,
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_articles_author ON articles(author_id);
			CREATE INDEX IF NOT EXISTS idx_articles_status_published ON articles(status, published_at);
		`},
		{"spaces", `
			CREATE TABLE IF NOT EXISTS spaces (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL,
				slug          TEXT NOT NULL UNIQUE,
				description   TEXT NOT NULL DEFAULT '',
				tags          TEXT NOT NULL DEFAULT '[]',
				visibility    TEXT NOT NULL DEFAULT 'public',
				owner_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				member_count  INTEGER NOT NULL DEFAULT 0,
				article_count INTEGER NOT NULL DEFAULT 0,
				created_at    DATETIME NOT NULL,
				updated_at    DATETIME
			);
			CREATE TABLE IF NOT EXISTS space_members (
				space_id  TEXT NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
				user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				role      TEXT NOT NULL DEFAULT 'member',
				joined_at DATETIME NOT NULL,
				PRIMARY KEY (space_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_space_members_user ON space_members(user_id);
		`},
		{"space_articles", `
			CREATE TABLE IF NOT EXISTS space_articles (
				space_id   TEXT NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
				article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
				added_by   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				pinned     INTEGER NOT NULL DEFAULT 0,
				added_at   DATETIME NOT NULL,
				PRIMARY KEY (space_id, article_id)
			);
			CREATE INDEX IF NOT EXISTS idx_space_articles_added ON space_articles(space_id, added_at);
		`},
		{"activities", `
			CREATE TABLE IF NOT EXISTS activities (
				id          TEXT PRIMARY KEY,
				user_id     TEXT REFERENCES users(id) ON DELETE SET NULL,
				type        TEXT NOT NULL,
				target_type TEXT NOT NULL,
				target_id   TEXT NOT NULL,
				duration    INTEGER,
				metadata    TEXT NOT NULL DEFAULT '{}',
				created_at  DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_activities_target ON activities(target_type, target_id, created_at);
		`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s: %w", step.name, err)
		}
	}
	return nil
}

// now is the storage clock. Everything is stored in UTC.
func now() time.Time {
	return time.Now().UTC()
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw string) []string {
	tags := []string{}
	if raw == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}

// tagOverlap builds "any of these tags" over a JSON array column.
func tagOverlap(column string, tags []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	args := make([]any, len(tags))
	for i, t := range tags {
		args[i] = t
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value IN (%s))", column, placeholders), args
}

// page clamps skip/limit the way every list endpoint does.
func page(skip, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}

// likePattern escapes % and _ for a LIKE ... ESCAPE '\' search.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
