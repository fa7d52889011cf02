package store

import (
	"context"
	"errors"

	"github.com/joescharf/zeit/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("duplicate")

// ErrCommit wraps a failed transaction commit.
var ErrCommit = errors.New("commit failed")

// ProjectListFilter specifies filters for listing projects.
type ProjectListFilter struct {
	Status    models.ProjectStatus
	CreatedBy string
}

// Store defines the persistence interface for zeit.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	// LockProject reads a project and holds a write lock on its row until
	// the surrounding transaction ends.
	LockProject(ctx context.Context, id int64) (*models.Project, error)
	ListProjects(ctx context.Context, filter ProjectListFilter) ([]*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProjects(ctx context.Context, ids []int64) (int64, error)

	// Active sessions
	CreateActiveSession(ctx context.Context, s *models.ActiveSession) error
	GetActiveSession(ctx context.Context, projectID int64, employee string) (*models.ActiveSession, error)
	ListActiveSessions(ctx context.Context, projectID int64) ([]*models.ActiveSession, error)
	DeleteActiveSession(ctx context.Context, projectID int64, employee string) error
	CountActiveSessions(ctx context.Context, projectID int64) (int, error)

	// Completed sessions
	CreateCompletedSession(ctx context.Context, s *models.CompletedSession) error
	ListCompletedSessions(ctx context.Context, projectID int64) ([]*models.CompletedSession, error)
	ListCompletedSessionsForProjects(ctx context.Context, projectIDs []int64) (map[int64][]*models.CompletedSession, error)

	// Employees
	CreateEmployee(ctx context.Context, e *models.Employee) error
	GetEmployeeByName(ctx context.Context, name string) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]*models.Employee, error)
	DeleteEmployee(ctx context.Context, name string) error

	// Customers
	CreateCustomer(ctx context.Context, c *models.Customer) error
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
	DeleteCustomer(ctx context.Context, name string) error

	// RunInTx runs fn inside one transaction. The Store passed to fn is bound
	// to that transaction; fn returning an error rolls everything back.
	// Calling RunInTx on a transaction-bound Store runs fn in the same
	// transaction.
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
