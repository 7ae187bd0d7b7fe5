package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"simplekanban/internal/database"
	"simplekanban/internal/models"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	tmpFile := fmt.Sprintf("test_store_%s.db", models.NewSlug())
	db, err := database.New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(tmpFile)
	}

	return New(db), cleanup
}

func createTestUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	user := &models.User{
		UserSlug:     models.NewSlug(),
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", models.NewSlug()),
		PasswordHash: "argon2id$x$y",
	}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestBoard(t *testing.T, s *Store, admin *models.User) *models.Board {
	t.Helper()
	board, err := s.CreateBoard(context.Background(), "Test Board", admin.UserSlug, true, true)
	if err != nil {
		t.Fatalf("Failed to create test board: %v", err)
	}
	return board
}

func columnIndexes(t *testing.T, s *Store, boardSlug string) map[int64]int {
	t.Helper()
	columns, err := s.ListColumns(context.Background(), boardSlug)
	if err != nil {
		t.Fatalf("Failed to list columns: %v", err)
	}
	indexes := make(map[int64]int, len(columns))
	for _, c := range columns {
		indexes[c.ColumnID] = c.ColumnIndex
	}
	return indexes
}

func assertDenseColumns(t *testing.T, s *Store, boardSlug string) {
	t.Helper()
	columns, err := s.ListColumns(context.Background(), boardSlug)
	if err != nil {
		t.Fatalf("Failed to list columns: %v", err)
	}
	for i, c := range columns {
		if c.ColumnIndex != i {
			t.Fatalf("column indexes not dense: position %d holds index %d", i, c.ColumnIndex)
		}
	}
}

func assertDenseTasks(t *testing.T, s *Store, boardSlug string, columnID int64) {
	t.Helper()
	tasks, err := s.ListTasks(context.Background(), boardSlug)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	next := 0
	for _, task := range tasks {
		if task.ColumnID != columnID {
			continue
		}
		if task.TaskIndex != next {
			t.Fatalf("task indexes not dense in column %d: want %d, got %d", columnID, next, task.TaskIndex)
		}
		next++
	}
}

func TestCreateColumnAppends(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	for i := 0; i < 3; i++ {
		col, err := s.CreateColumn(ctx, board.BoardSlug, fmt.Sprintf("Column %d", i), false, 5)
		if err != nil {
			t.Fatalf("CreateColumn failed: %v", err)
		}
		if col.ColumnIndex != i {
			t.Fatalf("column %d got index %d", i, col.ColumnIndex)
		}
	}
	assertDenseColumns(t, s, board.BoardSlug)
}

func TestMoveColumn(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	ids := make([]int64, 4)
	for i := range ids {
		col, err := s.CreateColumn(ctx, board.BoardSlug, fmt.Sprintf("Column %d", i), false, 5)
		if err != nil {
			t.Fatalf("CreateColumn failed: %v", err)
		}
		ids[i] = col.ColumnID
	}

	// Move first column to index 2: order becomes 1,2,0,3
	moved, err := s.MoveColumn(ctx, ids[0], 2)
	if err != nil {
		t.Fatalf("MoveColumn failed: %v", err)
	}
	if moved.ColumnIndex != 2 {
		t.Fatalf("moved column index = %d, want 2", moved.ColumnIndex)
	}

	indexes := columnIndexes(t, s, board.BoardSlug)
	want := map[int64]int{ids[0]: 2, ids[1]: 0, ids[2]: 1, ids[3]: 3}
	for id, idx := range want {
		if indexes[id] != idx {
			t.Fatalf("column %d index = %d, want %d", id, indexes[id], idx)
		}
	}
	assertDenseColumns(t, s, board.BoardSlug)
}

func TestMoveColumnClampsDestination(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	var first int64
	for i := 0; i < 3; i++ {
		col, err := s.CreateColumn(ctx, board.BoardSlug, fmt.Sprintf("Column %d", i), false, 5)
		if err != nil {
			t.Fatalf("CreateColumn failed: %v", err)
		}
		if i == 0 {
			first = col.ColumnID
		}
	}

	moved, err := s.MoveColumn(ctx, first, 99)
	if err != nil {
		t.Fatalf("MoveColumn failed: %v", err)
	}
	if moved.ColumnIndex != 2 {
		t.Fatalf("moved column index = %d, want 2 (clamped)", moved.ColumnIndex)
	}
	assertDenseColumns(t, s, board.BoardSlug)
}

func TestDeleteColumnClosesGap(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	ids := make([]int64, 3)
	for i := range ids {
		col, err := s.CreateColumn(ctx, board.BoardSlug, fmt.Sprintf("Column %d", i), false, 5)
		if err != nil {
			t.Fatalf("CreateColumn failed: %v", err)
		}
		ids[i] = col.ColumnID
	}

	if err := s.DeleteColumn(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteColumn failed: %v", err)
	}

	indexes := columnIndexes(t, s, board.BoardSlug)
	if len(indexes) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(indexes))
	}
	if indexes[ids[1]] != 0 || indexes[ids[2]] != 1 {
		t.Fatalf("indexes after delete = %v, want 0 and 1", indexes)
	}

	// Deleting a missing column reports a tagged operation failure
	err := s.DeleteColumn(ctx, ids[0])
	var cerr *models.ClientError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if cerr.Command != models.CmdDeleteCol {
		t.Fatalf("error command = %q, want %q", cerr.Command, models.CmdDeleteCol)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	col, err := s.CreateColumn(ctx, board.BoardSlug, "To Do", false, 5)
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}

	a, err := s.CreateTask(ctx, board.BoardSlug, col.ColumnID, "Task A")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	b, err := s.CreateTask(ctx, board.BoardSlug, col.ColumnID, "Task B")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if a.TaskIndex != 0 || b.TaskIndex != 1 {
		t.Fatalf("task indexes = %d, %d, want 0, 1", a.TaskIndex, b.TaskIndex)
	}

	updated, err := s.UpdateTask(ctx, a.TaskID, "Task A v2")
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.Text != "Task A v2" {
		t.Fatalf("updated text = %q", updated.Text)
	}

	// Deleting A moves B to index 0
	if err := s.DeleteTask(ctx, a.TaskID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	tasks, err := s.ListTasks(ctx, board.BoardSlug)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].TaskID != b.TaskID || tasks[0].TaskIndex != 0 {
		t.Fatalf("after delete: %+v, want task B at index 0", tasks)
	}
}

func TestCreateTaskRejectsForeignColumn(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	other := createTestBoard(t, s, admin)
	col, err := s.CreateColumn(ctx, other.BoardSlug, "Elsewhere", false, 5)
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}

	if _, err := s.CreateTask(ctx, board.BoardSlug, col.ColumnID, "Task"); err == nil {
		t.Fatal("expected error creating task on another board's column")
	}
}

func TestMoveTaskWithinColumn(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	col, err := s.CreateColumn(ctx, board.BoardSlug, "To Do", false, 5)
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}

	ids := make([]int64, 4)
	for i := range ids {
		task, err := s.CreateTask(ctx, board.BoardSlug, col.ColumnID, fmt.Sprintf("Task %d", i))
		if err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
		ids[i] = task.TaskID
	}

	moved, err := s.MoveTask(ctx, ids[3], col.ColumnID, 0)
	if err != nil {
		t.Fatalf("MoveTask failed: %v", err)
	}
	if moved.TaskIndex != 0 {
		t.Fatalf("moved task index = %d, want 0", moved.TaskIndex)
	}
	assertDenseTasks(t, s, board.BoardSlug, col.ColumnID)
}

func TestMoveTaskAcrossColumns(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	src, err := s.CreateColumn(ctx, board.BoardSlug, "To Do", false, 5)
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}
	dst, err := s.CreateColumn(ctx, board.BoardSlug, "Doing", false, 5)
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}

	var movedID int64
	for i := 0; i < 3; i++ {
		task, err := s.CreateTask(ctx, board.BoardSlug, src.ColumnID, fmt.Sprintf("Src %d", i))
		if err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
		if i == 1 {
			movedID = task.TaskID
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := s.CreateTask(ctx, board.BoardSlug, dst.ColumnID, fmt.Sprintf("Dst %d", i)); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	moved, err := s.MoveTask(ctx, movedID, dst.ColumnID, 1)
	if err != nil {
		t.Fatalf("MoveTask failed: %v", err)
	}
	if moved.ColumnID != dst.ColumnID || moved.TaskIndex != 1 {
		t.Fatalf("moved to column %d index %d, want column %d index 1", moved.ColumnID, moved.TaskIndex, dst.ColumnID)
	}
	assertDenseTasks(t, s, board.BoardSlug, src.ColumnID)
	assertDenseTasks(t, s, board.BoardSlug, dst.ColumnID)
}

func TestMoveTaskAcrossColumnsClampsToAppend(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	src, _ := s.CreateColumn(ctx, board.BoardSlug, "To Do", false, 5)
	dst, _ := s.CreateColumn(ctx, board.BoardSlug, "Doing", false, 5)

	task, err := s.CreateTask(ctx, board.BoardSlug, src.ColumnID, "Task")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := s.CreateTask(ctx, board.BoardSlug, dst.ColumnID, "Existing"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	moved, err := s.MoveTask(ctx, task.TaskID, dst.ColumnID, 99)
	if err != nil {
		t.Fatalf("MoveTask failed: %v", err)
	}
	if moved.TaskIndex != 1 {
		t.Fatalf("moved task index = %d, want 1 (append)", moved.TaskIndex)
	}
	assertDenseTasks(t, s, board.BoardSlug, dst.ColumnID)
}

func TestConcurrentTaskMovesStayDense(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	col, _ := s.CreateColumn(ctx, board.BoardSlug, "To Do", false, 10)

	ids := make([]int64, 6)
	for i := range ids {
		task, err := s.CreateTask(ctx, board.BoardSlug, col.ColumnID, fmt.Sprintf("Task %d", i))
		if err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
		ids[i] = task.TaskID
	}

	errCh := make(chan error, 2)
	go func() {
		_, err := s.MoveTask(ctx, ids[0], col.ColumnID, 4)
		errCh <- err
	}()
	go func() {
		_, err := s.MoveTask(ctx, ids[5], col.ColumnID, 1)
		errCh <- err
	}()
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent MoveTask failed: %v", err)
		}
	}

	assertDenseTasks(t, s, board.BoardSlug, col.ColumnID)
}

func TestDeleteBoardCascades(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	col, _ := s.CreateColumn(ctx, board.BoardSlug, "To Do", false, 5)
	if _, err := s.CreateTask(ctx, board.BoardSlug, col.ColumnID, "Task"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := s.CreateMessage(ctx, board.BoardSlug, admin, "hello"); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	if err := s.DeleteBoard(ctx, board.BoardSlug); err != nil {
		t.Fatalf("DeleteBoard failed: %v", err)
	}

	if _, err := s.GetBoard(ctx, board.BoardSlug); !errors.Is(err, ErrNotFound) {
		t.Fatalf("board still loadable after delete: %v", err)
	}
	tasks, err := s.ListTasks(ctx, board.BoardSlug)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("tasks survived board delete: %d", len(tasks))
	}
	memberships, err := s.ListMemberships(ctx, board.BoardSlug)
	if err != nil {
		t.Fatalf("ListMemberships failed: %v", err)
	}
	if len(memberships) != 0 {
		t.Fatalf("memberships survived board delete: %d", len(memberships))
	}
}

func TestMembershipCap(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)

	// Admin holds slot 1; fill the rest of the 25
	for i := 1; i < models.MaxBoardMembers; i++ {
		member := createTestUser(t, s, fmt.Sprintf("Member %d", i))
		if err := s.CreateMembership(ctx, board.BoardSlug, member.UserSlug, models.RoleMember); err != nil {
			t.Fatalf("CreateMembership %d failed: %v", i, err)
		}
	}

	extra := createTestUser(t, s, "Extra")
	if err := s.CreateMembership(ctx, board.BoardSlug, extra.UserSlug, models.RoleMember); !errors.Is(err, ErrBoardFull) {
		t.Fatalf("expected ErrBoardFull, got %v", err)
	}
}

func TestMembershipRespectsNewMembersFlag(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board, err := s.CreateBoard(ctx, "Closed Board", admin.UserSlug, true, false)
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}

	member := createTestUser(t, s, "Member")
	if err := s.CreateMembership(ctx, board.BoardSlug, member.UserSlug, models.RoleMember); !errors.Is(err, ErrNewMembersNotAllowed) {
		t.Fatalf("expected ErrNewMembersNotAllowed, got %v", err)
	}
}

func TestDuplicateDisplayName(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	member := createTestUser(t, s, "Member")
	if err := s.CreateMembership(ctx, board.BoardSlug, member.UserSlug, models.RoleMember); err != nil {
		t.Fatalf("CreateMembership failed: %v", err)
	}

	if err := s.UpdateMemberDisplayName(ctx, board.BoardSlug, admin.UserSlug, "kanban-fan"); err != nil {
		t.Fatalf("UpdateMemberDisplayName failed: %v", err)
	}

	err := s.UpdateMemberDisplayName(ctx, board.BoardSlug, member.UserSlug, "kanban-fan")
	var cerr *models.ClientError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if !cerr.Expected() {
		t.Fatal("duplicate display name should be an expected error")
	}

	// Empty display names never conflict
	if err := s.UpdateMemberDisplayName(ctx, board.BoardSlug, member.UserSlug, ""); err != nil {
		t.Fatalf("empty display name rejected: %v", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, s, "User")
	dup := &models.User{
		UserSlug:     models.NewSlug(),
		Name:         "Dup",
		Email:        user.Email,
		PasswordHash: "argon2id$x$y",
	}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, s, "Admin")
	board := createTestBoard(t, s, admin)
	col, _ := s.CreateColumn(ctx, board.BoardSlug, "To Do", true, 3)
	if _, err := s.CreateTask(ctx, board.BoardSlug, col.ColumnID, "Task"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := s.CreateMessage(ctx, board.BoardSlug, admin, "hello"); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	if err := s.LogActivity(ctx, board.BoardSlug, nil, models.CmdJoin, "Admin joined the board"); err != nil {
		t.Fatalf("LogActivity failed: %v", err)
	}

	snap, err := s.Snapshot(ctx, board.BoardSlug)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.BoardTitle != "Test Board" {
		t.Fatalf("snapshot title = %q", snap.BoardTitle)
	}
	if len(snap.Columns) != 1 || len(snap.Tasks) != 1 || len(snap.Memberships) != 1 ||
		len(snap.Messages) != 1 || len(snap.ActivityLogs) != 1 {
		t.Fatalf("snapshot incomplete: %d columns, %d tasks, %d memberships, %d messages, %d logs",
			len(snap.Columns), len(snap.Tasks), len(snap.Memberships), len(snap.Messages), len(snap.ActivityLogs))
	}
}
