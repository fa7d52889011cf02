package models

import (
	"sort"
	"time"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusStopped  ProjectStatus = "stopped"
	ProjectStatusRunning  ProjectStatus = "running"
	ProjectStatusPaused   ProjectStatus = "paused"
	ProjectStatusFinished ProjectStatus = "finished"
)

// Project represents a billable unit of work tracked across categories.
type Project struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Customer     string        `json:"customer"`
	CreatedBy    string        `json:"created_by"`
	Status       ProjectStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	FirstStartAt *time.Time    `json:"first_start_at,omitempty"` // write-once, set by the first activity start
	LastStartAt  *time.Time    `json:"last_start_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// IsFinished reports whether the project reached its terminal state.
func (p *Project) IsFinished() bool {
	return p.Status == ProjectStatusFinished
}

var statusRank = map[ProjectStatus]int{
	ProjectStatusStopped:  1,
	ProjectStatusRunning:  2,
	ProjectStatusPaused:   3,
	ProjectStatusFinished: 4,
}

// SortProjects orders projects for the dashboard: stopped, running, paused,
// finished. Finished projects are ordered by finish time, the rest by
// creation time.
func SortProjects(projects []*Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		a, b := projects[i], projects[j]
		ra, rb := rank(a.Status), rank(b.Status)
		if ra != rb {
			return ra < rb
		}
		return sortTime(a).Before(sortTime(b))
	})
}

func rank(s ProjectStatus) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return 5
}

func sortTime(p *Project) time.Time {
	if p.Status == ProjectStatusFinished && p.FinishedAt != nil {
		return *p.FinishedAt
	}
	return p.CreatedAt
}
