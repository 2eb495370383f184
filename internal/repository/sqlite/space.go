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

var _ repository.SpaceRepository = (*DB)(nil)

// spaceSelect takes the viewer id as its first argument.
const spaceSelect = `SELECT s.id, s.name, s.slug, s.description, s.tags, s.visibility,
	s.owner_id, s.member_count, s.article_count, s.created_at, s.updated_at,
	u.username, u.display_name, u.avatar_url, vm.role
	FROM spaces s
	JOIN users u ON u.id = s.owner_id
	LEFT JOIN space_members vm ON vm.space_id = s.id AND vm.user_id = ?`

// CreateSpace inserts the space and makes the owner its first member in one
// transaction.
func (db *DB) CreateSpace(ctx context.Context, sp *model.Space) error {
	tags, err := encodeTags(sp.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if sp.Visibility == "" {
		sp.Visibility = model.VisibilityPublic
	}
	sp.ID = xid.New().String()
	sp.CreatedAt = now()
	sp.MemberCount = 1

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO spaces (id, name, slug, description, tags, visibility, owner_id,
			member_count, article_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		sp.ID,
		sp.Name,
		sp.Slug,
		sp.Description,
		tags,
		string(sp.Visibility),
		sp.OwnerID,
		sp.MemberCount,
		sp.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("space", sp.Slug)
		}
		return fmt.Errorf("sqlite: inserting space: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO space_members (space_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		sp.ID, sp.OwnerID, string(model.RoleOwner), sp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding owner to space %s: %w", sp.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing space %s: %w", sp.ID, err)
	}

	owner := model.RoleOwner
	sp.IsMember = true
	sp.MemberRole = &owner
	return nil
}

// GetSpace returns a space by id with viewer-relative membership filled in.
func (db *DB) GetSpace(ctx context.Context, id, viewerID string) (*model.Space, error) {
	return db.getSpace(ctx, "s.id = ?", id, viewerID)
}

// GetSpaceBySlug returns a space by slug with viewer-relative membership.
func (db *DB) GetSpaceBySlug(ctx context.Context, slug, viewerID string) (*model.Space, error) {
	return db.getSpace(ctx, "s.slug = ?", slug, viewerID)
}

func (db *DB) getSpace(ctx context.Context, where, arg, viewerID string) (*model.Space, error) {
	sp, err := scanSpace(db.conn.QueryRowContext(ctx, spaceSelect+` WHERE `+where, viewerID, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("Space not found")
		}
		return nil, fmt.Errorf("sqlite: getting space %s: %w", arg, err)
	}
	return sp, nil
}

// ListSpaces returns one page of visible spaces and the total match count.
func (db *DB) ListSpaces(ctx context.Context, f repository.SpaceFilter) ([]model.Space, int, error) {
	where := []string{"(s.visibility = 'public' OR vm.user_id IS NOT NULL)"}
	args := []any{}

	if f.MemberID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM space_members m WHERE m.space_id = s.id AND m.user_id = ?)")
		args = append(args, f.MemberID)
	}
	if len(f.Tags) > 0 {
		clause, tagArgs := tagOverlap("s.tags", f.Tags)
		where = append(where, clause)
		args = append(args, tagArgs...)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `(s.name LIKE ? ESCAPE '\' OR s.description LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(s), likePattern(s))
	}
	if f.CreatedSince != nil {
		where = append(where, "s.created_at >= ?")
		args = append(args, f.CreatedSince.UTC())
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	countArgs := append([]any{f.ViewerID}, args...)
	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spaces s
		 LEFT JOIN space_members vm ON vm.space_id = s.id AND vm.user_id = ?`+cond,
		countArgs...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting spaces: %w", err)
	}

	order := " ORDER BY s.created_at DESC, s.id DESC"
	switch f.OrderBy {
	case "members":
		order = " ORDER BY s.member_count DESC, s.created_at DESC"
	case "updated":
		order = " ORDER BY COALESCE(s.updated_at, s.created_at) DESC"
	}

	skip, limit := page(f.Skip, f.Limit)
	queryArgs := append(countArgs, limit, skip)
	rows, err := db.conn.QueryContext(ctx, spaceSelect+cond+order+" LIMIT ? OFFSET ?", queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing spaces: %w", err)
	}
	defer rows.Close()

	spaces := []model.Space{}
	for rows.Next() {
		sp, err := scanSpace(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning space row: %w", err)
		}
		spaces = append(spaces, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating spaces: %w", err)
	}
	return spaces, total, nil
}

// SpaceSlugExists reports whether slug is taken.
func (db *DB) SpaceSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spaces WHERE slug = ?`, slug,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("sqlite: checking space slug %s: %w", slug, err)
	}
	return count > 0, nil
}

// GetMembership returns userID's membership of spaceID.
func (db *DB) GetMembership(ctx context.Context, spaceID, userID string) (*model.SpaceMember, error) {
	m, err := scanMember(db.conn.QueryRowContext(ctx,
		`SELECT m.user_id, u.username, u.display_name, u.avatar_url, m.role, m.joined_at
		 FROM space_members m JOIN users u ON u.id = m.user_id
		 WHERE m.space_id = ? AND m.user_id = ?`,
		spaceID, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("Not a member of this space")
		}
		return nil, fmt.Errorf("sqlite: getting membership %s/%s: %w", spaceID, userID, err)
	}
	return m, nil
}

// AddMember inserts a membership and bumps the space's member count.
func (db *DB) AddMember(ctx context.Context, spaceID, userID string, role model.Role) (*model.SpaceMember, error) {
	joined := now()
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO space_members (space_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
			spaceID, userID, string(role), joined,
		); err != nil {
			if isUniqueViolation(err) {
				return apperror.ConflictMessage("Already a member")
			}
			return fmt.Errorf("sqlite: adding member: %w", err)
		}
		return touchMemberCount(ctx, tx, spaceID, +1)
	})
	if err != nil {
		return nil, err
	}
	return db.GetMembership(ctx, spaceID, userID)
}

// RemoveMember deletes a membership and lowers the member count.
func (db *DB) RemoveMember(ctx context.Context, spaceID, userID string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM space_members WHERE space_id = ? AND user_id = ?`, spaceID, userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: removing member: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFoundMessage("Not a member of this space")
		}
		return touchMemberCount(ctx, tx, spaceID, -1)
	})
}

// UpdateMemberRole changes a member's role.
func (db *DB) UpdateMemberRole(ctx context.Context, spaceID, userID string, role model.Role) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE space_members SET role = ? WHERE space_id = ? AND user_id = ?`,
		string(role), spaceID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundMessage("Not a member of this space")
	}
	return nil
}

// ListMembers returns one page of members, owners first, then by join date.
func (db *DB) ListMembers(ctx context.Context, spaceID string, role model.Role, opts repository.ListOptions) ([]model.SpaceMember, int, error) {
	cond := " WHERE m.space_id = ?"
	args := []any{spaceID}
	if role != "" {
		cond += " AND m.role = ?"
		args = append(args, string(role))
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM space_members m`+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting members: %w", err)
	}

	skip, limit := page(opts.Skip, opts.Limit)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT m.user_id, u.username, u.display_name, u.avatar_url, m.role, m.joined_at
		 FROM space_members m JOIN users u ON u.id = m.user_id`+cond+`
		 ORDER BY CASE m.role WHEN 'owner' THEN 0 WHEN 'moderator' THEN 1 ELSE 2 END, m.joined_at
		 LIMIT ? OFFSET ?`,
		append(args, limit, skip)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing members: %w", err)
	}
	defer rows.Close()

	members := []model.SpaceMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning member row: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating members: %w", err)
	}
	return members, total, nil
}

// CountMembersSince counts members who joined at or after since.
func (db *DB) CountMembersSince(ctx context.Context, spaceID string, since time.Time) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM space_members WHERE space_id = ? AND joined_at >= ?`,
		spaceID, since.UTC(),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting new members of %s: %w", spaceID, err)
	}
	return n, nil
}

func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing: %w", err)
	}
	return nil
}

// touchMemberCount adjusts member_count and marks the space as active.
func touchMemberCount(ctx context.Context, tx *sql.Tx, spaceID string, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE spaces SET member_count = MAX(member_count + ?, 0), updated_at = ? WHERE id = ?`,
		delta, now(), spaceID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating member count of %s: %w", spaceID, err)
	}
	return nil
}

func scanSpace(s scanner) (*model.Space, error) {
	var (
		sp         model.Space
		tags       string
		visibility string
		updated    sql.NullTime
		role       sql.NullString
	)
	err := s.Scan(
		&sp.ID,
		&sp.Name,
		&sp.Slug,
		&sp.Description,
		&tags,
		&visibility,
		&sp.OwnerID,
		&sp.MemberCount,
		&sp.ArticleCount,
		&sp.CreatedAt,
		&updated,
		&sp.Owner.Username,
		&sp.Owner.DisplayName,
		&sp.Owner.AvatarURL,
		&role,
	)
	if err != nil {
		return nil, err
	}
	sp.Tags = decodeTags(tags)
	sp.Visibility = model.Visibility(visibility)
	sp.UpdatedAt = timePtr(updated)
	sp.Owner.ID = sp.OwnerID
	if role.Valid {
		r := model.Role(role.String)
		sp.IsMember = true
		sp.MemberRole = &r
	}
	return &sp, nil
}

func scanMember(s scanner) (*model.SpaceMember, error) {
	var (
		m    model.SpaceMember
		role string
	)
	if err := s.Scan(
		&m.User.ID,
		&m.User.Username,
		&m.User.DisplayName,
		&m.User.AvatarURL,
		&role,
		&m.JoinedAt,
	); err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	return &m, nil
}
