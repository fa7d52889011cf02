package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/zeit/internal/models"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
	assert.Equal(t, "sqlite", s.Driver())
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database driver")
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE TABLE b (y INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, stmts)
}

// --- Projects ---

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "Rohbau Nord", Customer: "Weber Bau", CreatedBy: "anna@example.com"}
	require.NoError(t, s.CreateProject(ctx, p))
	assert.NotZero(t, p.ID)
	assert.Equal(t, models.ProjectStatusStopped, p.Status)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rohbau Nord", got.Name)
	assert.Equal(t, "Weber Bau", got.Customer)
	assert.Equal(t, "anna@example.com", got.CreatedBy)
	assert.Nil(t, got.FirstStartAt)
	assert.Nil(t, got.FinishedAt)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Millisecond)

	now := time.Now().UTC()
	got.Status = models.ProjectStatusRunning
	got.FirstStartAt = &now
	got.LastStartAt = &now
	require.NoError(t, s.UpdateProject(ctx, got))

	got2, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusRunning, got2.Status)
	require.NotNil(t, got2.FirstStartAt)
	assert.WithinDuration(t, now, *got2.FirstStartAt, time.Millisecond)

	locked, err := s.LockProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, locked.ID)
}

func TestGetProject_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProject(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateProject_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateProject(context.Background(), &models.Project{ID: 42, Status: models.ProjectStatusPaused})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProjects_Filter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProject(ctx, &models.Project{Name: "a", CreatedBy: "x@example.com"}))
	require.NoError(t, s.CreateProject(ctx, &models.Project{Name: "b", CreatedBy: "y@example.com", Status: models.ProjectStatusFinished}))

	all, err := s.ListProjects(ctx, ProjectListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	finished, err := s.ListProjects(ctx, ProjectListFilter{Status: models.ProjectStatusFinished})
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, "b", finished[0].Name)

	mine, err := s.ListProjects(ctx, ProjectListFilter{CreatedBy: "x@example.com"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].Name)
}

func TestDeleteProjects_CascadesSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "gone"}
	keep := &models.Project{Name: "kept"}
	require.NoError(t, s.CreateProject(ctx, p))
	require.NoError(t, s.CreateProject(ctx, keep))

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateActiveSession(ctx, &models.ActiveSession{ProjectID: p.ID, Employee: "A", Category: "survey", StartedAt: start}))
	require.NoError(t, s.CreateCompletedSession(ctx, &models.CompletedSession{
		ProjectID: p.ID, Employee: "B", Category: "drafting", StartedAt: start, EndedAt: start.Add(time.Hour), DurationMinutes: 60,
	}))

	n, err := s.DeleteProjects(ctx, []int64{p.ID, 12345})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := s.CountActiveSessions(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	completed, err := s.ListCompletedSessions(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, completed)

	_, err = s.GetProject(ctx, keep.ID)
	assert.NoError(t, err)

	n, err = s.DeleteProjects(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- Sessions ---

func TestActiveSession_UniquePerEmployee(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "p"}
	require.NoError(t, s.CreateProject(ctx, p))

	a := &models.ActiveSession{ProjectID: p.ID, Employee: "A", Category: "survey"}
	require.NoError(t, s.CreateActiveSession(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.StartedAt.IsZero())

	err := s.CreateActiveSession(ctx, &models.ActiveSession{ProjectID: p.ID, Employee: "A", Category: "drafting"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)

	// A different employee on the same project is fine.
	require.NoError(t, s.CreateActiveSession(ctx, &models.ActiveSession{ProjectID: p.ID, Employee: "B", Category: "drafting"}))

	count, err := s.CountActiveSessions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := s.GetActiveSession(ctx, p.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, models.Category("survey"), got.Category)

	list, err := s.ListActiveSessions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteActiveSession(ctx, p.ID, "A"))
	_, err = s.GetActiveSession(ctx, p.ID, "A")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteActiveSession(ctx, p.ID, "A"), ErrNotFound)
}

func TestCompletedSessions_ForProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := &models.Project{Name: "p1"}
	p2 := &models.Project{Name: "p2"}
	require.NoError(t, s.CreateProject(ctx, p1))
	require.NoError(t, s.CreateProject(ctx, p2))

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, pid := range []int64{p1.ID, p1.ID, p2.ID} {
		require.NoError(t, s.CreateCompletedSession(ctx, &models.CompletedSession{
			ProjectID:       pid,
			Employee:        "A",
			Category:        "survey",
			StartedAt:       start.Add(time.Duration(i) * time.Hour),
			EndedAt:         start.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			DurationMinutes: 30,
		}))
	}

	byProject, err := s.ListCompletedSessionsForProjects(ctx, []int64{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Len(t, byProject[p1.ID], 2)
	assert.Len(t, byProject[p2.ID], 1)
	assert.Equal(t, 30, byProject[p2.ID][0].DurationMinutes)
	assert.True(t, byProject[p1.ID][0].StartedAt.Before(byProject[p1.ID][1].StartedAt))

	empty, err := s.ListCompletedSessionsForProjects(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// --- Transactions ---

func TestRunInTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "tx"}
	require.NoError(t, s.CreateProject(ctx, p))

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(tx Store) error {
		if err := tx.CreateActiveSession(ctx, &models.ActiveSession{ProjectID: p.ID, Employee: "A", Category: "survey"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := s.CountActiveSessions(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "insert should have been rolled back")
}

func TestRunInTx_Commits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "tx"}
	require.NoError(t, s.CreateProject(ctx, p))

	err := s.RunInTx(ctx, func(tx Store) error {
		if err := tx.CreateActiveSession(ctx, &models.ActiveSession{ProjectID: p.ID, Employee: "A", Category: "survey"}); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return tx.RunInTx(ctx, func(inner Store) error {
			return inner.CreateActiveSession(ctx, &models.ActiveSession{ProjectID: p.ID, Employee: "B", Category: "survey"})
		})
	})
	require.NoError(t, err)

	count, err := s.CountActiveSessions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// --- Employees & Customers ---

func TestEmployees(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEmployee(ctx, &models.Employee{Name: "Tom Weber"}))
	require.NoError(t, s.CreateEmployee(ctx, &models.Employee{Name: "Anna Schmidt"}))
	assert.ErrorIs(t, s.CreateEmployee(ctx, &models.Employee{Name: "Tom Weber"}), ErrDuplicate)

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Anna Schmidt", list[0].Name)

	e, err := s.GetEmployeeByName(ctx, "Tom Weber")
	require.NoError(t, err)
	assert.NotZero(t, e.ID)

	require.NoError(t, s.DeleteEmployee(ctx, "Tom Weber"))
	_, err = s.GetEmployeeByName(ctx, "Tom Weber")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteEmployee(ctx, "Tom Weber"), ErrNotFound)
}

func TestCustomers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCustomer(ctx, &models.Customer{Name: "Weber Bau"}))
	assert.ErrorIs(t, s.CreateCustomer(ctx, &models.Customer{Name: "Weber Bau"}), ErrDuplicate)

	list, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteCustomer(ctx, "Weber Bau"))
	assert.ErrorIs(t, s.DeleteCustomer(ctx, "Weber Bau"), ErrNotFound)
}

func TestResolveProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &models.Project{Name: "Rohbau Nord"}
	require.NoError(t, s.CreateProject(ctx, a))
	b := &models.Project{Name: "Dachstuhl"}
	require.NoError(t, s.CreateProject(ctx, b))

	got, err := ResolveProject(ctx, s, "rohbau nord")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, err = ResolveProject(ctx, s, fmt.Sprint(b.ID))
	require.NoError(t, err)
	assert.Equal(t, "Dachstuhl", got.Name)

	_, err = ResolveProject(ctx, s, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ResolveProject(ctx, s, "  ")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateProject(ctx, &models.Project{Name: "dachstuhl"}))
	_, err = ResolveProject(ctx, s, "Dachstuhl")
	assert.ErrorContains(t, err, "ambiguous")
}
