// Package store applies validated board mutations and enforces the
// ordered-list invariants: column_index values are dense and zero-based
// per board, task_index values are dense and zero-based per column. All
// renumbering happens inside the same transaction as the triggering
// mutation, with sibling rows locked for the duration.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"simplekanban/internal/database"
	"simplekanban/internal/reorder"
)

// Sentinel errors surfaced by membership and invitation preconditions.
var (
	ErrNotFound             = errors.New("not found")
	ErrBoardFull            = errors.New("board is full")
	ErrNewMembersNotAllowed = errors.New("board does not allow new members")
	ErrDuplicateEmail       = errors.New("email already registered")
)

// Store owns all persisted board state.
type Store struct {
	db *database.DB
}

// New creates a store on top of db.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying database for test fixtures.
func (s *Store) DB() *database.DB {
	return s.db
}

// applyShift renumbers sibling rows whose index falls inside the shift
// range. scopeSQL narrows the siblings ("board_slug = ?" for columns,
// "column_id = ?" for tasks); the caller must already hold row locks on
// them.
func applyShift(ctx context.Context, tx *sql.Tx, table, indexCol, scopeSQL string, scopeArg interface{}, shift reorder.Shift) error {
	if shift.Empty() {
		return nil
	}
	query := fmt.Sprintf(
		"UPDATE %s SET %s = %s + ?, updated_at = ? WHERE %s AND %s BETWEEN ? AND ?",
		table, indexCol, indexCol, scopeSQL, indexCol,
	)
	_, err := tx.ExecContext(ctx, query, shift.Delta, time.Now().UTC(), scopeArg, shift.Low, shift.High)
	return err
}

// lockedIndexes reads and locks the sibling indexes in scope, returning
// the current count.
func (s *Store) lockedIndexes(ctx context.Context, tx *sql.Tx, table, indexCol, scopeSQL string, scopeArg interface{}) (int, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s%s",
		indexCol, table, scopeSQL, s.db.ForUpdate(),
	)
	rows, err := tx.QueryContext(ctx, query, scopeArg)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return 0, err
		}
		count++
	}
	return count, rows.Err()
}

// expectOneRow verifies a mutation affected exactly one row. Any other
// count is an invariant violation, not a silent success.
func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%s affected %d rows, want 1", what, n)
	}
	return nil
}
