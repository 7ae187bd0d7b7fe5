package store

import (
	"context"
	"time"

	"simplekanban/internal/models"
)

// ListMessages returns the board's messages with their senders, oldest
// first.
func (s *Store) ListMessages(ctx context.Context, boardSlug string) ([]models.BoardMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.board_slug, m.msg_id, m.message, m.created_at, m.updated_at,
		       u.user_slug, u.name, u.email
		FROM board_messages m
		JOIN users u ON u.user_slug = m.sender_slug
		WHERE m.board_slug = ?
		ORDER BY m.created_at
	`, boardSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.BoardMessage, 0)
	for rows.Next() {
		var m models.BoardMessage
		if err := rows.Scan(&m.BoardSlug, &m.MsgID, &m.Message, &m.CreatedAt, &m.UpdatedAt,
			&m.Sender.UserSlug, &m.Sender.Name, &m.Sender.Email); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CreateMessage persists an immutable board message from sender.
func (s *Store) CreateMessage(ctx context.Context, boardSlug string, sender *models.User, message string) (*models.BoardMessage, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO board_messages (board_slug, sender_slug, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, boardSlug, sender.UserSlug, message, now, now)
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdCreateMsg, "Message not created", err)
	}

	msgID, err := res.LastInsertId()
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdCreateMsg, "Message not created", err)
	}
	return &models.BoardMessage{
		BoardSlug: boardSlug,
		MsgID:     msgID,
		Sender:    *sender,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
