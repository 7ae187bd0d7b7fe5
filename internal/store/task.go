package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"simplekanban/internal/models"
	"simplekanban/internal/reorder"
)

func (s *Store) getTaskTx(ctx context.Context, tx *sql.Tx, taskID int64) (*models.Task, error) {
	var t models.Task
	err := tx.QueryRowContext(ctx, `
		SELECT board_slug, column_id, task_id, task_index, text, is_archived, updated_at
		FROM tasks WHERE task_id = ?`+s.db.ForUpdate(),
		taskID,
	).Scan(&t.BoardSlug, &t.ColumnID, &t.TaskID, &t.TaskIndex, &t.Text, &t.IsArchived, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns all of the board's tasks ordered by column and
// task_index.
func (s *Store) ListTasks(ctx context.Context, boardSlug string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT board_slug, column_id, task_id, task_index, text, is_archived, updated_at
		FROM tasks WHERE board_slug = ? ORDER BY column_id, task_index
	`, boardSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.BoardSlug, &t.ColumnID, &t.TaskID, &t.TaskIndex, &t.Text, &t.IsArchived, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask appends a task to a column: the new task_index is the
// column's current task count, computed under lock. The column must
// belong to the board.
func (s *Store) CreateTask(ctx context.Context, boardSlug string, columnID int64, text string) (*models.Task, error) {
	now := time.Now().UTC()
	task := &models.Task{
		BoardSlug: boardSlug,
		ColumnID:  columnID,
		Text:      text,
		UpdatedAt: now,
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		column, err := s.getColumnTx(ctx, tx, columnID)
		if err != nil {
			return err
		}
		if column.BoardSlug != boardSlug {
			return ErrNotFound
		}

		count, err := s.lockedIndexes(ctx, tx, "tasks", "task_index", "column_id = ?", columnID)
		if err != nil {
			return err
		}
		task.TaskIndex = reorder.PlanAppend(count)

		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (board_slug, column_id, task_index, text, is_archived, created_at, updated_at)
			VALUES (?, ?, ?, ?, 0, ?, ?)
		`, boardSlug, columnID, task.TaskIndex, text, now, now)
		if err != nil {
			return err
		}
		task.TaskID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdCreateTask, "Task not created", err)
	}
	return task, nil
}

// UpdateTask replaces a task's text.
func (s *Store) UpdateTask(ctx context.Context, taskID int64, text string) (*models.Task, error) {
	var task *models.Task
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := s.getTaskTx(ctx, tx, taskID)
		if err != nil {
			return err
		}
		t.Text = text
		t.UpdatedAt = time.Now().UTC()

		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET text = ?, updated_at = ? WHERE task_id = ?
		`, t.Text, t.UpdatedAt, t.TaskID)
		if err != nil {
			return err
		}
		if err := expectOneRow(res, "task update"); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdUpdateTask, "Task not updated", err)
	}
	return task, nil
}

// MoveTask moves a task to newIndex on columnID. A move within the
// task's current column renumbers that column's siblings; a move to a
// different column closes the gap in the source column and opens a slot
// in the destination, all in one transaction with the affected sibling
// rows locked.
func (s *Store) MoveTask(ctx context.Context, taskID, columnID int64, newIndex int) (*models.Task, error) {
	var task *models.Task
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := s.getTaskTx(ctx, tx, taskID)
		if err != nil {
			return err
		}

		if columnID == t.ColumnID {
			count, err := s.lockedIndexes(ctx, tx, "tasks", "task_index", "column_id = ?", t.ColumnID)
			if err != nil {
				return err
			}

			clamped, shift := reorder.PlanMove(t.TaskIndex, newIndex, count)
			if err := applyShift(ctx, tx, "tasks", "task_index", "column_id = ?", t.ColumnID, shift); err != nil {
				return err
			}
			t.TaskIndex = clamped
		} else {
			dest, err := s.getColumnTx(ctx, tx, columnID)
			if err != nil {
				return err
			}
			if dest.BoardSlug != t.BoardSlug {
				return ErrNotFound
			}

			sourceCount, err := s.lockedIndexes(ctx, tx, "tasks", "task_index", "column_id = ?", t.ColumnID)
			if err != nil {
				return err
			}
			destCount, err := s.lockedIndexes(ctx, tx, "tasks", "task_index", "column_id = ?", columnID)
			if err != nil {
				return err
			}

			clamped, sourceShift, destShift := reorder.PlanCrossMove(t.TaskIndex, newIndex, sourceCount, destCount)
			if err := applyShift(ctx, tx, "tasks", "task_index", "column_id = ?", t.ColumnID, sourceShift); err != nil {
				return err
			}
			if err := applyShift(ctx, tx, "tasks", "task_index", "column_id = ?", columnID, destShift); err != nil {
				return err
			}
			t.ColumnID = columnID
			t.TaskIndex = clamped
		}

		t.UpdatedAt = time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET column_id = ?, task_index = ?, updated_at = ? WHERE task_id = ?
		`, t.ColumnID, t.TaskIndex, t.UpdatedAt, t.TaskID)
		if err != nil {
			return err
		}
		if err := expectOneRow(res, "task move"); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, models.NewOperationFailed(models.CmdMoveTask, "Task not moved", err)
	}
	return task, nil
}

// DeleteTask removes a task and closes the index gap in its column, in
// one transaction. Exactly one task row must be affected.
func (s *Store) DeleteTask(ctx context.Context, taskID int64) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := s.getTaskTx(ctx, tx, taskID)
		if err != nil {
			return err
		}
		count, err := s.lockedIndexes(ctx, tx, "tasks", "task_index", "column_id = ?", t.ColumnID)
		if err != nil {
			return err
		}

		shift := reorder.PlanDelete(t.TaskIndex, count)
		if err := applyShift(ctx, tx, "tasks", "task_index", "column_id = ?", t.ColumnID, shift); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, taskID)
		if err != nil {
			return err
		}
		return expectOneRow(res, "task delete")
	})
	if err != nil {
		return models.NewOperationFailed(models.CmdDeleteTask, "Task not deleted", err)
	}
	return nil
}
