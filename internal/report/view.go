package report

import (
	"sort"
	"time"

	"github.com/joescharf/zeit/internal/models"
)

// ActiveView is a running session with its live duration.
type ActiveView struct {
	SessionID string          `json:"session_id"`
	Employee  string          `json:"employee"`
	Category  models.Category `json:"category"`
	StartedAt time.Time       `json:"started_at"`
	Minutes   int             `json:"minutes"`
	Text      string          `json:"text"`
}

// ProjectView is the live state of a project: who is working on it right
// now and what has been booked so far.
type ProjectView struct {
	Project          *models.Project            `json:"project"`
	Active           []ActiveView               `json:"active"`
	Categories       []CategoryTotal            `json:"categories"`
	CompletedMinutes int                        `json:"completed_minutes"`
	CompletedText    string                     `json:"completed_text"`
	Sessions         []*models.CompletedSession `json:"sessions"`
}

// BuildProjectView combines running and completed sessions as of now.
// Completed sessions are listed newest first.
func BuildProjectView(p *models.Project, active []*models.ActiveSession, completed []*models.CompletedSession, now time.Time, opts Options) *ProjectView {
	v := &ProjectView{
		Project:  p,
		Active:   make([]ActiveView, 0, len(active)),
		Sessions: make([]*models.CompletedSession, 0, len(completed)),
	}

	for _, a := range active {
		m := SessionMinutes(a.StartedAt, now)
		v.Active = append(v.Active, ActiveView{
			SessionID: a.ID,
			Employee:  a.Employee,
			Category:  a.Category,
			StartedAt: a.StartedAt,
			Minutes:   m,
			Text:      FormatDuration(m),
		})
	}
	sort.SliceStable(v.Active, func(i, j int) bool {
		return v.Active[i].StartedAt.Before(v.Active[j].StartedAt)
	})

	cats := newTally(opts.Categories)
	for _, s := range completed {
		cats.add(s.Category, s.DurationMinutes)
		v.Sessions = append(v.Sessions, s)
	}
	sort.SliceStable(v.Sessions, func(i, j int) bool {
		return v.Sessions[i].StartedAt.After(v.Sessions[j].StartedAt)
	})

	v.Categories = cats.totals()
	v.CompletedMinutes = cats.sum()
	v.CompletedText = FormatDuration(v.CompletedMinutes)
	return v
}
