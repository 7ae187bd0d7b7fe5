package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"simplekanban/internal/models"
)

// CreateBoard creates a board and its ADMIN membership for the creator
// in one transaction.
func (s *Store) CreateBoard(ctx context.Context, title, creatorSlug string, messagesAllowed, newMembersAllowed bool) (*models.Board, error) {
	now := time.Now().UTC()
	board := &models.Board{
		BoardSlug:         models.NewSlug(),
		BoardTitle:        title,
		MessagesAllowed:   messagesAllowed,
		NewMembersAllowed: newMembersAllowed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO boards (board_slug, board_title, messages_allowed, new_members_allowed, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, board.BoardSlug, board.BoardTitle, board.MessagesAllowed, board.NewMembersAllowed, now, now); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO board_memberships (board_slug, user_slug, role, display_name, created_at, updated_at)
			VALUES (?, ?, ?, '', ?, ?)
		`, board.BoardSlug, creatorSlug, models.RoleAdmin, now, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	return board, nil
}

// GetBoard loads a board by slug.
func (s *Store) GetBoard(ctx context.Context, boardSlug string) (*models.Board, error) {
	var b models.Board
	err := s.db.QueryRowContext(ctx, `
		SELECT board_slug, board_title, messages_allowed, new_members_allowed, created_at, updated_at
		FROM boards WHERE board_slug = ?
	`, boardSlug).Scan(&b.BoardSlug, &b.BoardTitle, &b.MessagesAllowed, &b.NewMembersAllowed, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	return &b, nil
}

// ListBoards returns the boards the user is a member of, most recently
// joined first.
func (s *Store) ListBoards(ctx context.Context, userSlug string) ([]models.BoardThumb, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.board_slug, b.board_title, m.created_at
		FROM board_memberships m
		JOIN boards b ON b.board_slug = m.board_slug
		WHERE m.user_slug = ?
		ORDER BY m.created_at DESC
	`, userSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	boards := make([]models.BoardThumb, 0)
	for rows.Next() {
		var t models.BoardThumb
		if err := rows.Scan(&t.BoardSlug, &t.BoardTitle, &t.JoinedAt); err != nil {
			return nil, err
		}
		boards = append(boards, t)
	}
	return boards, rows.Err()
}

// UpdateBoardTitle sets the board title and returns the updated board.
func (s *Store) UpdateBoardTitle(ctx context.Context, boardSlug, title string) (*models.Board, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE boards SET board_title = ?, updated_at = ? WHERE board_slug = ?
	`, title, time.Now().UTC(), boardSlug)
	if err == nil {
		err = expectOneRow(res, "board title update")
	}
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdTitle, "Board title not updated", err)
	}

	board, err := s.GetBoard(ctx, boardSlug)
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdTitle, "Board title not updated", err)
	}
	return board, nil
}

// DeleteBoard removes a board and everything hanging off it (columns,
// tasks, memberships, messages, invitations, activity logs cascade).
// Exactly one board row must be affected.
func (s *Store) DeleteBoard(ctx context.Context, boardSlug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE board_slug = ?`, boardSlug)
	if err == nil {
		err = expectOneRow(res, "board delete")
	}
	if err != nil {
		return models.NewOperationFailed(models.CmdDeleteBoard, "Board not deleted", err)
	}
	return nil
}

// Snapshot serializes the full current board state: columns, tasks,
// memberships, messages and recent activity.
func (s *Store) Snapshot(ctx context.Context, boardSlug string) (*models.BoardSnapshot, error) {
	board, err := s.GetBoard(ctx, boardSlug)
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdReadBoard, "Could not read board", err)
	}

	snap := &models.BoardSnapshot{
		BoardSlug:         board.BoardSlug,
		BoardTitle:        board.BoardTitle,
		MessagesAllowed:   board.MessagesAllowed,
		NewMembersAllowed: board.NewMembersAllowed,
		CreatedAt:         board.CreatedAt,
		UpdatedAt:         board.UpdatedAt,
	}

	if snap.Columns, err = s.ListColumns(ctx, boardSlug); err == nil {
		if snap.Tasks, err = s.ListTasks(ctx, boardSlug); err == nil {
			if snap.Memberships, err = s.ListMemberships(ctx, boardSlug); err == nil {
				if snap.Messages, err = s.ListMessages(ctx, boardSlug); err == nil {
					snap.ActivityLogs, err = s.ListActivity(ctx, boardSlug)
				}
			}
		}
	}
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdReadBoard, "Could not read board", err)
	}
	return snap, nil
}
