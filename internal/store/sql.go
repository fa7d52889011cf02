package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/zeit/internal/models"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dialect captures what differs between the supported SQL backends.
type dialect struct {
	name            string
	migrationsDir   string
	migrationsTable string
	lockSuffix      string
	isDuplicate     func(error) bool
}

// SQLStore implements Store on database/sql for SQLite and MySQL.
type SQLStore struct {
	db      *sql.DB
	q       querier
	inTx    bool
	dialect dialect
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, q: db, dialect: d}
}

// Driver returns the backend name ("sqlite" or "mysql").
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files for the backend in order.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.migrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir(s.dialect.migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile(s.dialect.migrationsDir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		// MySQL rejects multi-statement batches unless the DSN opts in.
		for _, stmt := range splitStatements(string(data)) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)", name, time.Now().UTC()); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// RunInTx runs fn in a transaction, committing when fn returns nil.
func (s *SQLStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&SQLStore{db: s.db, q: tx, inTx: true, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommit, err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// --- Projects ---

const projectColumns = `id, name, customer, created_by, status, created_at, first_start_at, last_start_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var status string
	var firstStart, lastStart, finished sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Customer, &p.CreatedBy, &status, &p.CreatedAt, &firstStart, &lastStart, &finished); err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.FirstStartAt = timePtr(firstStart)
	p.LastStartAt = timePtr(lastStart)
	p.FinishedAt = timePtr(finished)
	return p, nil
}

func (s *SQLStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusStopped
	}

	result, err := s.q.ExecContext(ctx,
		`INSERT INTO projects (name, customer, created_by, status, created_at, first_start_at, last_start_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Customer, p.CreatedBy, string(p.Status), p.CreatedAt.UTC(),
		utcPtr(p.FirstStartAt), utcPtr(p.LastStartAt), utcPtr(p.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	p.ID = id
	return nil
}

func (s *SQLStore) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	return s.getProject(ctx, id, "")
}

func (s *SQLStore) LockProject(ctx context.Context, id int64) (*models.Project, error) {
	return s.getProject(ctx, id, s.dialect.lockSuffix)
}

func (s *SQLStore) getProject(ctx context.Context, id int64, suffix string) (*models.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`+suffix, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *SQLStore) ListProjects(ctx context.Context, filter ProjectListFilter) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLStore) UpdateProject(ctx context.Context, p *models.Project) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE projects SET name=?, customer=?, status=?, first_start_at=?, last_start_at=?, finished_at=?
		WHERE id=?`,
		p.Name, p.Customer, string(p.Status),
		utcPtr(p.FirstStartAt), utcPtr(p.LastStartAt), utcPtr(p.FinishedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	// MySQL reports 0 affected rows when nothing changed, so only a failed
	// lookup counts as missing.
	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := s.GetProject(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteProjects removes the projects and all their sessions.
func (s *SQLStore) DeleteProjects(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := s.RunInTx(ctx, func(tx Store) error {
		t := tx.(*SQLStore)
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		in := placeholders(len(ids))

		for _, table := range []string{"active_sessions", "completed_sessions"} {
			if _, err := t.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE project_id IN ("+in+")", args...); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		result, err := t.q.ExecContext(ctx, "DELETE FROM projects WHERE id IN ("+in+")", args...)
		if err != nil {
			return fmt.Errorf("delete projects: %w", err)
		}
		n, _ = result.RowsAffected()
		return nil
	})
	return n, err
}

// --- Active Sessions ---

func (s *SQLStore) CreateActiveSession(ctx context.Context, a *models.ActiveSession) error {
	if a.ID == "" {
		a.ID = newULID()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO active_sessions (id, project_id, employee, category, started_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.Employee, string(a.Category), a.StartedAt.UTC(),
	)
	if err != nil {
		if s.dialect.isDuplicate(err) {
			return fmt.Errorf("active session for %s on project %d: %w", a.Employee, a.ProjectID, ErrDuplicate)
		}
		return fmt.Errorf("create active session: %w", err)
	}
	return nil
}

func (s *SQLStore) GetActiveSession(ctx context.Context, projectID int64, employee string) (*models.ActiveSession, error) {
	a := &models.ActiveSession{}
	var category string
	err := s.q.QueryRowContext(ctx,
		`SELECT id, project_id, employee, category, started_at FROM active_sessions
		WHERE project_id = ? AND employee = ?`, projectID, employee,
	).Scan(&a.ID, &a.ProjectID, &a.Employee, &category, &a.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active session for %s on project %d: %w", employee, projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	a.Category = models.Category(category)
	a.StartedAt = a.StartedAt.UTC()
	return a, nil
}

func (s *SQLStore) ListActiveSessions(ctx context.Context, projectID int64) ([]*models.ActiveSession, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, employee, category, started_at FROM active_sessions
		WHERE project_id = ? ORDER BY started_at, employee`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.ActiveSession
	for rows.Next() {
		a := &models.ActiveSession{}
		var category string
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Employee, &category, &a.StartedAt); err != nil {
			return nil, fmt.Errorf("scan active session: %w", err)
		}
		a.Category = models.Category(category)
		a.StartedAt = a.StartedAt.UTC()
		sessions = append(sessions, a)
	}
	return sessions, rows.Err()
}

func (s *SQLStore) DeleteActiveSession(ctx context.Context, projectID int64, employee string) error {
	result, err := s.q.ExecContext(ctx,
		"DELETE FROM active_sessions WHERE project_id = ? AND employee = ?", projectID, employee)
	if err != nil {
		return fmt.Errorf("delete active session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("active session for %s on project %d: %w", employee, projectID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) CountActiveSessions(ctx context.Context, projectID int64) (int, error) {
	var count int
	if err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM active_sessions WHERE project_id = ?", projectID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

// --- Completed Sessions ---

const completedColumns = `id, project_id, employee, category, started_at, ended_at, duration_minutes`

func (s *SQLStore) CreateCompletedSession(ctx context.Context, c *models.CompletedSession) error {
	if c.ID == "" {
		c.ID = newULID()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO completed_sessions (`+completedColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Employee, string(c.Category), c.StartedAt.UTC(), c.EndedAt.UTC(), c.DurationMinutes,
	)
	if err != nil {
		return fmt.Errorf("create completed session: %w", err)
	}
	return nil
}

func (s *SQLStore) ListCompletedSessions(ctx context.Context, projectID int64) ([]*models.CompletedSession, error) {
	byProject, err := s.ListCompletedSessionsForProjects(ctx, []int64{projectID})
	if err != nil {
		return nil, err
	}
	return byProject[projectID], nil
}

func (s *SQLStore) ListCompletedSessionsForProjects(ctx context.Context, projectIDs []int64) (map[int64][]*models.CompletedSession, error) {
	out := make(map[int64][]*models.CompletedSession, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+completedColumns+` FROM completed_sessions
		WHERE project_id IN (`+placeholders(len(projectIDs))+`) ORDER BY started_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		c := &models.CompletedSession{}
		var category string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Employee, &category, &c.StartedAt, &c.EndedAt, &c.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan completed session: %w", err)
		}
		c.Category = models.Category(category)
		c.StartedAt = c.StartedAt.UTC()
		c.EndedAt = c.EndedAt.UTC()
		out[c.ProjectID] = append(out[c.ProjectID], c)
	}
	return out, rows.Err()
}

// --- Employees ---

func (s *SQLStore) CreateEmployee(ctx context.Context, e *models.Employee) error {
	e.CreatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO employees (name, created_at) VALUES (?, ?)`, e.Name, e.CreatedAt)
	if err != nil {
		if s.dialect.isDuplicate(err) {
			return fmt.Errorf("employee %s: %w", e.Name, ErrDuplicate)
		}
		return fmt.Errorf("create employee: %w", err)
	}
	e.ID, _ = result.LastInsertId()
	return nil
}

func (s *SQLStore) GetEmployeeByName(ctx context.Context, name string) (*models.Employee, error) {
	e := &models.Employee{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM employees WHERE name = ?`, name,
	).Scan(&e.ID, &e.Name, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (s *SQLStore) ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT id, name, created_at FROM employees ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var employees []*models.Employee
	for rows.Next() {
		e := &models.Employee{}
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *SQLStore) DeleteEmployee(ctx context.Context, name string) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM employees WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %s: %w", name, ErrNotFound)
	}
	return nil
}

// --- Customers ---

func (s *SQLStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	c.CreatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO customers (name, created_at) VALUES (?, ?)`, c.Name, c.CreatedAt)
	if err != nil {
		if s.dialect.isDuplicate(err) {
			return fmt.Errorf("customer %s: %w", c.Name, ErrDuplicate)
		}
		return fmt.Errorf("create customer: %w", err)
	}
	c.ID, _ = result.LastInsertId()
	return nil
}

func (s *SQLStore) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT id, name, created_at FROM customers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var customers []*models.Customer
	for rows.Next() {
		c := &models.Customer{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *SQLStore) DeleteCustomer(ctx context.Context, name string) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM customers WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("customer %s: %w", name, ErrNotFound)
	}
	return nil
}
