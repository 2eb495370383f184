package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, default_username, display_name, password_hash,
	github_id, github_username, avatar_url, bio, company, location, expertise_tags,
	created_at, updated_at`

// CreateUser inserts a user and fills in ID and timestamps. A duplicate
// email or username comes back as a conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	tags, err := encodeTags(user.ExpertiseTags)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	user.ID = xid.New().String()
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		strings.ToLower(user.Email),
		user.Username,
		user.DefaultUsername,
		user.DisplayName,
		user.PasswordHash,
		githubID(user.GitHubID),
		user.GitHubUsername,
		user.AvatarURL,
		user.Bio,
		user.Company,
		user.Location,
		tags,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByID returns the user with the given id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id = ?", id, id)
}

// GetUserByEmail matches email case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)), email)
}

// GetUserByUsername returns the user with the given public username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username = ?", username, username)
}

// GetUserByGitHubID returns the user linked to a GitHub account.
func (db *DB) GetUserByGitHubID(ctx context.Context, id int64) (*model.User, error) {
	return db.getUser(ctx, "github_id = ?", id, fmt.Sprint(id))
}

func (db *DB) getUser(ctx context.Context, where string, arg any, label string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", label)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", label, err)
	}
	return u, nil
}

// UpdateUser writes every mutable column of user.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	tags, err := encodeTags(user.ExpertiseTags)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	user.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET
			username = ?, display_name = ?, github_id = ?, github_username = ?,
			avatar_url = ?, bio = ?, company = ?, location = ?, expertise_tags = ?,
			updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.DisplayName,
		githubID(user.GitHubID),
		user.GitHubUsername,
		user.AvatarURL,
		user.Bio,
		user.Company,
		user.Location,
		tags,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("Username is already taken")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// UsernameTaken reports whether a user other than exceptID owns username.
func (db *DB) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? AND id != ?`,
		username, exceptID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %s: %w", username, err)
	}
	return count > 0, nil
}

// ContentCounts returns the user's published article count and space count.
func (db *DB) ContentCounts(ctx context.Context, userID string) (int, int, error) {
	var articles, spaces int
	err := db.conn.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM articles WHERE author_id = ? AND status = 'published'),
			(SELECT COUNT(*) FROM space_members WHERE user_id = ?)`,
		userID, userID,
	).Scan(&articles, &spaces)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: counting content of %s: %w", userID, err)
	}
	return articles, spaces, nil
}

// ListUsersSince returns users created at or after since, newest first.
func (db *DB) ListUsersSince(ctx context.Context, since time.Time, limit int) ([]model.User, error) {
	_, limit = page(0, limit)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE created_at >= ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		since.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing new users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u    model.User
		ghID sql.NullInt64
		tags string
	)
	err := s.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.DefaultUsername,
		&u.DisplayName,
		&u.PasswordHash,
		&ghID,
		&u.GitHubUsername,
		&u.AvatarURL,
		&u.Bio,
		&u.Company,
		&u.Location,
		&tags,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = ghID.Int64
	u.ExpertiseTags = decodeTags(tags)
	return &u, nil
}

// githubID stores 0 as NULL so the UNIQUE index ignores password accounts.
func githubID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
