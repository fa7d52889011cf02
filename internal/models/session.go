package models

import "time"

// ActiveSession is an in-progress timed activity. There is at most one per
// (ProjectID, Employee) pair.
type ActiveSession struct {
	ID        string    `json:"id"`
	ProjectID int64     `json:"project_id"`
	Employee  string    `json:"employee"`
	Category  Category  `json:"category"`
	StartedAt time.Time `json:"started_at"`
}

// CompletedSession is the immutable record of a finished activity.
type CompletedSession struct {
	ID              string    `json:"id"`
	ProjectID       int64     `json:"project_id"`
	Employee        string    `json:"employee"`
	Category        Category  `json:"category"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationMinutes int       `json:"duration_minutes"`
}
