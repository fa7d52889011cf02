package report

import (
	"sort"
	"time"

	"github.com/joescharf/zeit/internal/models"
)

// Visibility decides whether a project may appear in a report for the
// current caller. A nil Visibility shows everything.
type Visibility func(*models.Project) bool

func (v Visibility) allows(p *models.Project) bool {
	return v == nil || v(p)
}

// ProjectSessions pairs a project with its completed sessions.
type ProjectSessions struct {
	Project  *models.Project
	Sessions []*models.CompletedSession
}

// ProjectSummary is one project's line in a range or period report.
type ProjectSummary struct {
	ProjectID    int64           `json:"project_id"`
	ProjectName  string          `json:"project_name"`
	Customer     string          `json:"customer"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Minutes      int             `json:"minutes"`
	Text         string          `json:"text"`
	CalendarDays int             `json:"calendar_days"`
	Categories   []CategoryTotal `json:"categories"`
	Employees    []EmployeeTotal `json:"employees,omitempty"`
}

// RangeReport summarises finished projects created inside a date range.
type RangeReport struct {
	From         string           `json:"from"`
	To           string           `json:"to"`
	Projects     []ProjectSummary `json:"projects"`
	Categories   []CategoryTotal  `json:"categories"`
	TotalMinutes int              `json:"total_minutes"`
	TotalText    string           `json:"total_text"`
}

// RangeOption tweaks BuildRangeReport.
type RangeOption func(*rangeConfig)

type rangeConfig struct {
	employees bool
}

// WithEmployees adds the per-employee breakdown to every project summary.
func WithEmployees() RangeOption {
	return func(c *rangeConfig) { c.employees = true }
}

// BuildRangeReport includes every finished, visible project whose creation
// date lies within [from, to]. Both bounds are calendar dates and inclusive.
// A from after to yields an empty report.
func BuildRangeReport(projects []ProjectSessions, from, to time.Time, visible Visibility, opts Options, ropts ...RangeOption) *RangeReport {
	var cfg rangeConfig
	for _, o := range ropts {
		o(&cfg)
	}

	loc := opts.location()
	from, to = DateOf(from, time.UTC), DateOf(to, time.UTC)
	r := &RangeReport{
		From:     from.Format(time.DateOnly),
		To:       to.Format(time.DateOnly),
		Projects: []ProjectSummary{},
	}

	grand := newTally(opts.Categories)
	if !from.After(to) {
		for _, ps := range projects {
			p := ps.Project
			if p == nil || !p.IsFinished() || !visible.allows(p) {
				continue
			}
			if !inRange(DateOf(p.CreatedAt, loc), from, to) {
				continue
			}
			pr := BuildProjectReport(p, ps.Sessions, opts)
			summary := summaryFrom(p, pr)
			if cfg.employees {
				summary.Employees = pr.Employees
			}
			r.Projects = append(r.Projects, summary)
			grand.merge(pr.Categories)
		}
	}
	sortSummaries(r.Projects)

	r.Categories = grand.totals()
	r.TotalMinutes = grand.sum()
	r.TotalText = FormatDuration(r.TotalMinutes)
	return r
}

// PeriodReport summarises work whose sessions started inside a date range,
// regardless of project status.
type PeriodReport struct {
	From         string           `json:"from"`
	To           string           `json:"to"`
	Projects     []ProjectSummary `json:"projects"`
	Employees    []EmployeeTotal  `json:"employees"`
	Categories   []CategoryTotal  `json:"categories"`
	TotalMinutes int              `json:"total_minutes"`
	TotalText    string           `json:"total_text"`
}

// BuildPeriodReport keeps only sessions whose start date lies within
// [from, to] and drops projects left with none.
func BuildPeriodReport(projects []ProjectSessions, from, to time.Time, visible Visibility, opts Options) *PeriodReport {
	loc := opts.location()
	from, to = DateOf(from, time.UTC), DateOf(to, time.UTC)
	r := &PeriodReport{
		From:      from.Format(time.DateOnly),
		To:        to.Format(time.DateOnly),
		Projects:  []ProjectSummary{},
		Employees: []EmployeeTotal{},
	}

	grand := newTally(opts.Categories)
	employees := make(map[string]*tally)
	if !from.After(to) {
		for _, ps := range projects {
			p := ps.Project
			if p == nil || !visible.allows(p) {
				continue
			}
			var kept []*models.CompletedSession
			for _, s := range ps.Sessions {
				if inRange(DateOf(s.StartedAt, loc), from, to) {
					kept = append(kept, s)
				}
			}
			if len(kept) == 0 {
				continue
			}

			pr := BuildProjectReport(p, kept, opts)
			summary := summaryFrom(p, pr)
			summary.Employees = pr.Employees
			r.Projects = append(r.Projects, summary)
			grand.merge(pr.Categories)
			for _, e := range pr.Employees {
				t, ok := employees[e.Employee]
				if !ok {
					t = newTally(opts.Categories)
					employees[e.Employee] = t
				}
				t.merge(e.Categories)
			}
		}
	}
	sortSummaries(r.Projects)

	r.Employees = employeeTotals(employees)
	r.Categories = grand.totals()
	r.TotalMinutes = grand.sum()
	r.TotalText = FormatDuration(r.TotalMinutes)
	return r
}

func summaryFrom(p *models.Project, pr *ProjectReport) ProjectSummary {
	return ProjectSummary{
		ProjectID:    p.ID,
		ProjectName:  p.Name,
		Customer:     p.Customer,
		CreatedBy:    p.CreatedBy,
		CreatedAt:    p.CreatedAt,
		FinishedAt:   p.FinishedAt,
		Minutes:      pr.OverallMinutes,
		Text:         pr.OverallText,
		CalendarDays: pr.CalendarDays,
		Categories:   pr.Categories,
	}
}

func sortSummaries(s []ProjectSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.Before(s[j].CreatedAt)
		}
		return s[i].ProjectID < s[j].ProjectID
	})
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}
