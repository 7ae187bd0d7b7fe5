package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"simplekanban/internal/models"
	"simplekanban/internal/reorder"
)

// ColumnUpdate is a partial field set for update_column; nil fields stay
// unchanged.
type ColumnUpdate struct {
	ColumnTitle *string
	WIPLimitOn  *bool
	WIPLimit    *int
}

func (s *Store) getColumnTx(ctx context.Context, tx *sql.Tx, columnID int64) (*models.Column, error) {
	var c models.Column
	err := tx.QueryRowContext(ctx, `
		SELECT board_slug, column_id, column_index, column_title, wip_limit_on, wip_limit, updated_at
		FROM columns WHERE column_id = ?`+s.db.ForUpdate(),
		columnID,
	).Scan(&c.BoardSlug, &c.ColumnID, &c.ColumnIndex, &c.ColumnTitle, &c.WIPLimitOn, &c.WIPLimit, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListColumns returns the board's columns ordered by column_index.
func (s *Store) ListColumns(ctx context.Context, boardSlug string) ([]models.Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT board_slug, column_id, column_index, column_title, wip_limit_on, wip_limit, updated_at
		FROM columns WHERE board_slug = ? ORDER BY column_index
	`, boardSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make([]models.Column, 0)
	for rows.Next() {
		var c models.Column
		if err := rows.Scan(&c.BoardSlug, &c.ColumnID, &c.ColumnIndex, &c.ColumnTitle, &c.WIPLimitOn, &c.WIPLimit, &c.UpdatedAt); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// CreateColumn appends a column to the board: the new column_index is
// the current column count, computed under lock.
func (s *Store) CreateColumn(ctx context.Context, boardSlug, title string, wipLimitOn bool, wipLimit int) (*models.Column, error) {
	now := time.Now().UTC()
	column := &models.Column{
		BoardSlug:   boardSlug,
		ColumnTitle: title,
		WIPLimitOn:  wipLimitOn,
		WIPLimit:    wipLimit,
		UpdatedAt:   now,
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		count, err := s.lockedIndexes(ctx, tx, "columns", "column_index", "board_slug = ?", boardSlug)
		if err != nil {
			return err
		}
		column.ColumnIndex = reorder.PlanAppend(count)

		res, err := tx.ExecContext(ctx, `
			INSERT INTO columns (board_slug, column_index, column_title, wip_limit_on, wip_limit, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, boardSlug, column.ColumnIndex, title, wipLimitOn, wipLimit, now, now)
		if err != nil {
			return err
		}
		column.ColumnID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdCreateCol, "Column not created", err)
	}
	return column, nil
}

// UpdateColumn applies a partial update to a column's title and WIP
// settings.
func (s *Store) UpdateColumn(ctx context.Context, columnID int64, update ColumnUpdate) (*models.Column, error) {
	var column *models.Column
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		c, err := s.getColumnTx(ctx, tx, columnID)
		if err != nil {
			return err
		}
		if update.ColumnTitle != nil {
			c.ColumnTitle = *update.ColumnTitle
		}
		if update.WIPLimitOn != nil {
			c.WIPLimitOn = *update.WIPLimitOn
		}
		if update.WIPLimit != nil {
			c.WIPLimit = *update.WIPLimit
		}
		c.UpdatedAt = time.Now().UTC()

		res, err := tx.ExecContext(ctx, `
			UPDATE columns SET column_title = ?, wip_limit_on = ?, wip_limit = ?, updated_at = ?
			WHERE column_id = ?
		`, c.ColumnTitle, c.WIPLimitOn, c.WIPLimit, c.UpdatedAt, c.ColumnID)
		if err != nil {
			return err
		}
		if err := expectOneRow(res, "column update"); err != nil {
			return err
		}
		column = c
		return nil
	})
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdUpdateCol, "Column not updated", err)
	}
	return column, nil
}

// MoveColumn moves a column to newIndex on its board, renumbering the
// displaced columns in the same transaction. The destination is clamped
// to [0, count-1]; moving to the current index is a no-op re-save.
func (s *Store) MoveColumn(ctx context.Context, columnID int64, newIndex int) (*models.Column, error) {
	var column *models.Column
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		c, err := s.getColumnTx(ctx, tx, columnID)
		if err != nil {
			return err
		}
		count, err := s.lockedIndexes(ctx, tx, "columns", "column_index", "board_slug = ?", c.BoardSlug)
		if err != nil {
			return err
		}

		clamped, shift := reorder.PlanMove(c.ColumnIndex, newIndex, count)
		if err := applyShift(ctx, tx, "columns", "column_index", "board_slug = ?", c.BoardSlug, shift); err != nil {
			return err
		}

		c.ColumnIndex = clamped
		c.UpdatedAt = time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE columns SET column_index = ?, updated_at = ? WHERE column_id = ?
		`, c.ColumnIndex, c.UpdatedAt, c.ColumnID)
		if err != nil {
			return err
		}
		if err := expectOneRow(res, "column move"); err != nil {
			return err
		}
		column = c
		return nil
	})
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdMoveCol, "Column not moved", err)
	}
	return column, nil
}

// DeleteColumn removes a column and closes the index gap it leaves, in
// one transaction. Exactly one column row must be affected.
func (s *Store) DeleteColumn(ctx context.Context, columnID int64) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		c, err := s.getColumnTx(ctx, tx, columnID)
		if err != nil {
			return err
		}
		count, err := s.lockedIndexes(ctx, tx, "columns", "column_index", "board_slug = ?", c.BoardSlug)
		if err != nil {
			return err
		}

		shift := reorder.PlanDelete(c.ColumnIndex, count)
		if err := applyShift(ctx, tx, "columns", "column_index", "board_slug = ?", c.BoardSlug, shift); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM columns WHERE column_id = ?`, columnID)
		if err != nil {
			return err
		}
		return expectOneRow(res, "column delete")
	})
	if err != nil {
		return models.NewOperationFailed(models.CmdDeleteCol, "Column not deleted", err)
	}
	return nil
}
