package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/aic-hub/internal/repository"
)

var _ repository.ActivityRepository = (*DB)(nil)

// RecordActivity stores one interaction. An empty UserID is stored as NULL.
func (db *DB) RecordActivity(ctx context.Context, a *repository.Activity) error {
	meta := a.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sqlite: encoding activity metadata: %w", err)
	}

	a.ID = xid.New().String()
	a.CreatedAt = now()

	var userID any
	if a.UserID != "" {
		userID = a.UserID
	}
	var duration any
	if a.Duration != nil {
		duration = *a.Duration
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO activities (id, user_id, type, target_type, target_id, duration, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, userID, a.Type, a.TargetType, a.TargetID, duration, string(metaJSON), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording activity: %w", err)
	}
	return nil
}

// CountActivities counts interactions on one target since a point in time.
func (db *DB) CountActivities(ctx context.Context, targetType, targetID string, since time.Time) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE target_type = ? AND target_id = ? AND created_at >= ?`,
		targetType, targetID, since.UTC(),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting activities: %w", err)
	}
	return n, nil
}
