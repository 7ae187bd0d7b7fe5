package store

import (
	"context"
	"time"

	"simplekanban/internal/models"
)

// LogActivity appends an entry to the board's activity feed. taskID may
// be nil for board-level events.
func (s *Store) LogActivity(ctx context.Context, boardSlug string, taskID *int64, command, msg string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (board_slug, task_id, command, msg, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, boardSlug, taskID, command, msg, time.Now().UTC())
	return err
}

// ListActivity returns the board's activity feed, newest first.
func (s *Store) ListActivity(ctx context.Context, boardSlug string) ([]models.ActivityLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT board_slug, task_id, command, msg, created_at
		FROM activity_logs WHERE board_slug = ? ORDER BY created_at DESC
	`, boardSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]models.ActivityLog, 0)
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.BoardSlug, &l.TaskID, &l.Command, &l.Msg, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
