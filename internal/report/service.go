package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/store"
)

// ErrNotFinished is returned when a project report is requested for a
// project that is still open.
var ErrNotFinished = errors.New("project not finished")

// Service loads report inputs from a store. Each call reads inside one
// transaction so a report never mixes data from before and after a write.
type Service struct {
	store store.Store
	opts  Options
	now   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNow overrides the clock used for live durations.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a report service over s.
func NewService(s store.Store, opts Options, sopts ...ServiceOption) *Service {
	svc := &Service{store: s, opts: opts, now: time.Now}
	for _, o := range sopts {
		o(svc)
	}
	return svc
}

// Options returns the grouping options the service reports with.
func (s *Service) Options() Options {
	return s.opts
}

// ProjectReport builds the report for a finished project.
func (s *Service) ProjectReport(ctx context.Context, projectID int64) (*ProjectReport, error) {
	var r *ProjectReport
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		p, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if !p.IsFinished() {
			return fmt.Errorf("project %d: %w", projectID, ErrNotFinished)
		}
		sessions, err := tx.ListCompletedSessions(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		r = BuildProjectReport(p, sessions, s.opts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RangeReport builds the report over finished projects created within
// [from, to].
func (s *Service) RangeReport(ctx context.Context, from, to time.Time, visible Visibility, ropts ...RangeOption) (*RangeReport, error) {
	var input []ProjectSessions
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		projects, err := tx.ListProjects(ctx, store.ProjectListFilter{Status: models.ProjectStatusFinished})
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		input, err = loadSessions(ctx, tx, projects)
		return err
	})
	if err != nil {
		return nil, err
	}
	return BuildRangeReport(input, from, to, visible, s.opts, ropts...), nil
}

// PeriodReport builds the report over sessions started within [from, to].
func (s *Service) PeriodReport(ctx context.Context, from, to time.Time, visible Visibility) (*PeriodReport, error) {
	var input []ProjectSessions
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		projects, err := tx.ListProjects(ctx, store.ProjectListFilter{})
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		input, err = loadSessions(ctx, tx, projects)
		return err
	})
	if err != nil {
		return nil, err
	}
	return BuildPeriodReport(input, from, to, visible, s.opts), nil
}

// ProjectView returns the live state of any project.
func (s *Service) ProjectView(ctx context.Context, projectID int64) (*ProjectView, error) {
	var v *ProjectView
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		p, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		active, err := tx.ListActiveSessions(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list active sessions: %w", err)
		}
		completed, err := tx.ListCompletedSessions(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		v = BuildProjectView(p, active, completed, s.now().UTC(), s.opts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func loadSessions(ctx context.Context, tx store.Store, projects []*models.Project) ([]ProjectSessions, error) {
	ids := make([]int64, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	byProject, err := tx.ListCompletedSessionsForProjects(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]ProjectSessions, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectSessions{Project: p, Sessions: byProject[p.ID]})
	}
	return out, nil
}
