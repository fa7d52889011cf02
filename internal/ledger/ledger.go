// Package ledger records when employees start and stop working on a
// project and drives the project status through its lifecycle:
//
//	stopped -> running <-> paused -> finished
//
// Every operation reads the project under a write lock and applies all of
// its writes in one transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/report"
	"github.com/joescharf/zeit/internal/store"
)

// Config holds the ledger's tunables.
type Config struct {
	// Categories is the allowed category set. Empty means
	// models.DefaultCategories.
	Categories []models.Category
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// Ledger is the session ledger. It is safe for concurrent use as long as
// the underlying store is.
type Ledger struct {
	store      store.Store
	categories models.CategorySet
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Ledger over s.
func New(s store.Store, cfg Config, opts ...Option) *Ledger {
	l := &Ledger{
		store:      s,
		categories: models.NewCategorySet(cfg.Categories),
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Categories returns the allowed categories in configured order.
func (l *Ledger) Categories() []models.Category {
	return l.categories.List()
}

// StopResult describes a stopped activity.
type StopResult struct {
	DurationMinutes int                      `json:"duration_minutes"`
	DurationText    string                   `json:"duration_text"`
	Session         *models.CompletedSession `json:"session"`
}

// FinishResult describes a finished project.
type FinishResult struct {
	Project *models.Project            `json:"project"`
	Closed  []*models.CompletedSession `json:"closed"`
}

// StartActivity opens a session for employee on the project.
func (l *Ledger) StartActivity(ctx context.Context, projectID int64, employee, category string) error {
	employee = strings.TrimSpace(employee)
	cat, ok := l.categories.Resolve(category)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		p, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		if p.IsFinished() {
			return fmt.Errorf("project %d: %w", projectID, ErrAlreadyFinished)
		}
		if _, err := tx.GetEmployeeByName(ctx, employee); err != nil {
			return err
		}

		now := l.now().UTC()
		err = tx.CreateActiveSession(ctx, &models.ActiveSession{
			ProjectID: projectID,
			Employee:  employee,
			Category:  cat,
			StartedAt: now,
		})
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%s on project %d: %w", employee, projectID, ErrAlreadyActive)
		}
		if err != nil {
			return err
		}

		p.Status = models.ProjectStatusRunning
		p.LastStartAt = &now
		if p.FirstStartAt == nil {
			p.FirstStartAt = &now
		}
		if err := tx.UpdateProject(ctx, p); err != nil {
			return inconsistent("update project", err)
		}
		return nil
	})
	if err != nil {
		return commitErr(err)
	}

	l.logger.Info("activity started",
		slog.Int64("project_id", projectID),
		slog.String("employee", employee),
		slog.String("category", string(cat)),
	)
	return nil
}

// StopActivity closes employee's running session on the project and books
// it as a completed session. The project pauses once nobody works on it.
func (l *Ledger) StopActivity(ctx context.Context, projectID int64, employee string) (StopResult, error) {
	employee = strings.TrimSpace(employee)
	var res StopResult

	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		p, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		active, err := tx.GetActiveSession(ctx, projectID, employee)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%s on project %d: %w", employee, projectID, ErrNoActiveSession)
		}
		if err != nil {
			return err
		}

		now := l.now().UTC()
		done, err := closeSession(ctx, tx, active, now)
		if err != nil {
			return err
		}

		remaining, err := tx.CountActiveSessions(ctx, projectID)
		if err != nil {
			return inconsistent("count active sessions", err)
		}
		if remaining == 0 && p.Status != models.ProjectStatusPaused {
			p.Status = models.ProjectStatusPaused
			if err := tx.UpdateProject(ctx, p); err != nil {
				return inconsistent("update project", err)
			}
		}

		res = StopResult{
			DurationMinutes: done.DurationMinutes,
			DurationText:    report.FormatDuration(done.DurationMinutes),
			Session:         done,
		}
		return nil
	})
	if err != nil {
		return StopResult{}, commitErr(err)
	}

	l.logger.Info("activity stopped",
		slog.Int64("project_id", projectID),
		slog.String("employee", employee),
		slog.Int("minutes", res.DurationMinutes),
	)
	return res, nil
}

// FinishProject closes every running session at one shared instant and
// marks the project finished.
func (l *Ledger) FinishProject(ctx context.Context, projectID int64) (FinishResult, error) {
	var res FinishResult

	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		p, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		if p.IsFinished() {
			return fmt.Errorf("project %d: %w", projectID, ErrAlreadyFinished)
		}
		active, err := tx.ListActiveSessions(ctx, projectID)
		if err != nil {
			return err
		}

		now := l.now().UTC()
		closed := make([]*models.CompletedSession, 0, len(active))
		for _, a := range active {
			done, err := closeSession(ctx, tx, a, now)
			if err != nil {
				return err
			}
			closed = append(closed, done)
		}

		p.Status = models.ProjectStatusFinished
		p.FinishedAt = &now
		if err := tx.UpdateProject(ctx, p); err != nil {
			return inconsistent("update project", err)
		}
		res = FinishResult{Project: p, Closed: closed}
		return nil
	})
	if err != nil {
		return FinishResult{}, commitErr(err)
	}

	l.logger.Info("project finished",
		slog.Int64("project_id", projectID),
		slog.Int("closed_sessions", len(res.Closed)),
	)
	return res, nil
}

// closeSession books active as completed at end and removes it.
func closeSession(ctx context.Context, tx store.Store, active *models.ActiveSession, end time.Time) (*models.CompletedSession, error) {
	done := &models.CompletedSession{
		ProjectID:       active.ProjectID,
		Employee:        active.Employee,
		Category:        active.Category,
		StartedAt:       active.StartedAt,
		EndedAt:         end,
		DurationMinutes: report.SessionMinutes(active.StartedAt, end),
	}
	if err := tx.CreateCompletedSession(ctx, done); err != nil {
		return nil, inconsistent("record completed session", err)
	}
	if err := tx.DeleteActiveSession(ctx, active.ProjectID, active.Employee); err != nil {
		return nil, inconsistent("remove active session", err)
	}
	return done, nil
}

func commitErr(err error) error {
	if errors.Is(err, store.ErrCommit) {
		return inconsistent("commit", err)
	}
	return err
}
