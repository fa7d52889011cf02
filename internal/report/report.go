// Package report rolls completed and running sessions up into per-project,
// per-employee and per-category totals. The builders are pure functions;
// Service loads the data they need from a store snapshot.
package report

import (
	"sort"
	"time"

	"github.com/joescharf/zeit/internal/models"
)

// Options controls how reports are grouped.
type Options struct {
	// Categories lists the configured categories in display order. Every
	// report carries a bucket for each of them, even when empty.
	Categories []models.Category
	// Location decides which calendar day a timestamp falls on. Nil means UTC.
	Location *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// CategoryTotal is the roll-up for one category.
type CategoryTotal struct {
	Category models.Category `json:"category"`
	Minutes  int             `json:"minutes"`
	Text     string          `json:"text"`
	Sessions int             `json:"sessions"`
}

// EmployeeTotal is the roll-up for one employee, split by category.
type EmployeeTotal struct {
	Employee   string          `json:"employee"`
	Categories []CategoryTotal `json:"categories"`
	Minutes    int             `json:"minutes"`
	Text       string          `json:"text"`
}

// ProjectReport is the full report for one project.
type ProjectReport struct {
	ProjectID      int64           `json:"project_id"`
	ProjectName    string          `json:"project_name"`
	Customer       string          `json:"customer"`
	OverallMinutes int             `json:"overall_minutes"`
	OverallText    string          `json:"overall_text"`
	CalendarDays   int             `json:"calendar_days"`
	SessionCount   int             `json:"session_count"`
	Categories     []CategoryTotal `json:"categories"`
	Employees      []EmployeeTotal `json:"employees"`
}

// BuildProjectReport aggregates a project's completed sessions.
func BuildProjectReport(p *models.Project, sessions []*models.CompletedSession, opts Options) *ProjectReport {
	r := &ProjectReport{}
	if p != nil {
		r.ProjectID = p.ID
		r.ProjectName = p.Name
		r.Customer = p.Customer
	}

	cats := newTally(opts.Categories)
	employees := make(map[string]*tally)
	for _, s := range sessions {
		cats.add(s.Category, s.DurationMinutes)
		t, ok := employees[s.Employee]
		if !ok {
			t = newTally(opts.Categories)
			employees[s.Employee] = t
		}
		t.add(s.Category, s.DurationMinutes)
	}

	r.Categories = cats.totals()
	for _, c := range r.Categories {
		r.OverallMinutes += c.Minutes
		r.SessionCount += c.Sessions
	}
	r.OverallText = FormatDuration(r.OverallMinutes)
	r.Employees = employeeTotals(employees)
	r.CalendarDays = CalendarDays(sessions, opts.location())
	return r
}

// CalendarDays counts the calendar days from the earliest to the latest
// session start, inclusive. No sessions gives 0.
func CalendarDays(sessions []*models.CompletedSession, loc *time.Location) int {
	if len(sessions) == 0 {
		return 0
	}
	first := DateOf(sessions[0].StartedAt, loc)
	last := first
	for _, s := range sessions[1:] {
		d := DateOf(s.StartedAt, loc)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return daysBetween(first, last) + 1
}

// DateOf returns the calendar date of t in loc, as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// tally accumulates minutes and session counts per category, remembering
// configured order and appending unknown categories in name order.
type tally struct {
	order      []models.Category
	configured int
	minutes    map[models.Category]int
	count      map[models.Category]int
}

func newTally(configured []models.Category) *tally {
	t := &tally{
		minutes: make(map[models.Category]int),
		count:   make(map[models.Category]int),
	}
	for _, c := range configured {
		if _, ok := t.minutes[c]; ok {
			continue
		}
		t.order = append(t.order, c)
		t.minutes[c] = 0
	}
	t.configured = len(t.order)
	return t
}

func (t *tally) add(c models.Category, minutes int) {
	if _, ok := t.minutes[c]; !ok {
		t.order = append(t.order, c)
	}
	t.minutes[c] += minutes
	t.count[c]++
}

func (t *tally) merge(other []CategoryTotal) {
	for _, c := range other {
		if _, ok := t.minutes[c.Category]; !ok {
			t.order = append(t.order, c.Category)
		}
		t.minutes[c.Category] += c.Minutes
		t.count[c.Category] += c.Sessions
	}
}

func (t *tally) totals() []CategoryTotal {
	order := make([]models.Category, len(t.order))
	copy(order, t.order)
	extras := order[t.configured:]
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })

	out := make([]CategoryTotal, 0, len(order))
	for _, c := range order {
		m := t.minutes[c]
		out = append(out, CategoryTotal{
			Category: c,
			Minutes:  m,
			Text:     FormatDuration(m),
			Sessions: t.count[c],
		})
	}
	return out
}

func (t *tally) sum() int {
	total := 0
	for _, m := range t.minutes {
		total += m
	}
	return total
}

func employeeTotals(employees map[string]*tally) []EmployeeTotal {
	names := make([]string, 0, len(employees))
	for name := range employees {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]EmployeeTotal, 0, len(names))
	for _, name := range names {
		t := employees[name]
		m := t.sum()
		out = append(out, EmployeeTotal{
			Employee:   name,
			Categories: t.totals(),
			Minutes:    m,
			Text:       FormatDuration(m),
		})
	}
	return out
}
