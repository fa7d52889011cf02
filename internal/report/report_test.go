package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/zeit/internal/models"
)

var testOpts = Options{Categories: models.DefaultCategories}

func at(day, hour, min int) time.Time {
	return time.Date(2025, 3, day, hour, min, 0, 0, time.UTC)
}

func completed(employee string, cat models.Category, start time.Time, minutes int) *models.CompletedSession {
	return &models.CompletedSession{
		Employee:        employee,
		Category:        cat,
		StartedAt:       start,
		EndedAt:         start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
	}
}

func categoryMinutes(totals []CategoryTotal) map[models.Category]int {
	out := make(map[models.Category]int, len(totals))
	for _, c := range totals {
		out[c.Category] = c.Minutes
	}
	return out
}

func sampleSessions() []*models.CompletedSession {
	return []*models.CompletedSession{
		completed("anna", "drafting", at(3, 9, 0), 95),
		completed("ben", "drafting", at(4, 8, 0), 60),
		completed("anna", "survey", at(5, 14, 0), 30),
		completed("ben", "legacy", at(5, 16, 0), 10),
	}
}

func TestBuildProjectReport(t *testing.T) {
	p := &models.Project{ID: 7, Name: "Rohbau Nord", Customer: "Weber Bau"}

	r := BuildProjectReport(p, sampleSessions(), testOpts)

	assert.Equal(t, int64(7), r.ProjectID)
	assert.Equal(t, "Rohbau Nord", r.ProjectName)
	assert.Equal(t, "Weber Bau", r.Customer)
	assert.Equal(t, 195, r.OverallMinutes)
	assert.Equal(t, "3h 15m", r.OverallText)
	assert.Equal(t, 3, r.CalendarDays)
	assert.Equal(t, 4, r.SessionCount)

	// Configured categories first in configured order, extras after.
	require.Len(t, r.Categories, 4)
	assert.Equal(t, models.Category("discussion"), r.Categories[0].Category)
	assert.Equal(t, 0, r.Categories[0].Minutes)
	assert.Equal(t, "0m", r.Categories[0].Text)
	assert.Equal(t, models.Category("drafting"), r.Categories[1].Category)
	assert.Equal(t, 155, r.Categories[1].Minutes)
	assert.Equal(t, 2, r.Categories[1].Sessions)
	assert.Equal(t, "2h 35m", r.Categories[1].Text)
	assert.Equal(t, models.Category("survey"), r.Categories[2].Category)
	assert.Equal(t, models.Category("legacy"), r.Categories[3].Category)

	require.Len(t, r.Employees, 2)
	assert.Equal(t, "anna", r.Employees[0].Employee)
	assert.Equal(t, 125, r.Employees[0].Minutes)
	assert.Equal(t, "2h 5m", r.Employees[0].Text)
	assert.Equal(t, map[models.Category]int{"discussion": 0, "drafting": 95, "survey": 30}, categoryMinutes(r.Employees[0].Categories))
	assert.Equal(t, "ben", r.Employees[1].Employee)
	assert.Equal(t, 70, r.Employees[1].Minutes)
	assert.Equal(t, map[models.Category]int{"discussion": 0, "drafting": 60, "survey": 0, "legacy": 10}, categoryMinutes(r.Employees[1].Categories))
}

func TestBuildProjectReport_TotalsAgree(t *testing.T) {
	r := BuildProjectReport(&models.Project{ID: 1}, sampleSessions(), testOpts)

	byCategory := 0
	for _, c := range r.Categories {
		byCategory += c.Minutes
	}
	byEmployee := 0
	for _, e := range r.Employees {
		byEmployee += e.Minutes
	}
	assert.Equal(t, r.OverallMinutes, byCategory)
	assert.Equal(t, r.OverallMinutes, byEmployee)
}

func TestBuildProjectReport_NoSessions(t *testing.T) {
	r := BuildProjectReport(&models.Project{ID: 1}, nil, testOpts)

	assert.Equal(t, 0, r.OverallMinutes)
	assert.Equal(t, "0m", r.OverallText)
	assert.Equal(t, 0, r.CalendarDays)
	assert.Len(t, r.Categories, 3)
	assert.Empty(t, r.Employees)
}

func TestCalendarDays(t *testing.T) {
	single := []*models.CompletedSession{
		completed("anna", "drafting", at(3, 9, 0), 10),
		completed("anna", "drafting", at(3, 17, 0), 10),
	}
	assert.Equal(t, 1, CalendarDays(single, time.UTC))

	// Unordered input still spans first to last day.
	spread := []*models.CompletedSession{
		completed("anna", "drafting", at(10, 9, 0), 10),
		completed("anna", "drafting", at(1, 9, 0), 10),
		completed("anna", "drafting", at(5, 9, 0), 10),
	}
	assert.Equal(t, 10, CalendarDays(spread, time.UTC))
	assert.Equal(t, 0, CalendarDays(nil, time.UTC))
}

func TestCalendarDays_Location(t *testing.T) {
	sessions := []*models.CompletedSession{
		completed("anna", "drafting", at(3, 23, 30), 10),
		completed("anna", "drafting", at(4, 0, 30), 10),
	}
	assert.Equal(t, 2, CalendarDays(sessions, time.UTC))

	cet := time.FixedZone("CET", 3600)
	assert.Equal(t, 1, CalendarDays(sessions, cet))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("04.03.2025")
	assert.Error(t, err)
}

func TestBuildProjectView(t *testing.T) {
	now := at(6, 10, 0)
	p := &models.Project{ID: 3, Status: models.ProjectStatusRunning}
	active := []*models.ActiveSession{
		{ID: "b", ProjectID: 3, Employee: "ben", Category: "survey", StartedAt: now.Add(-30 * time.Second)},
		{ID: "a", ProjectID: 3, Employee: "anna", Category: "drafting", StartedAt: now.Add(-95 * time.Minute)},
	}

	v := BuildProjectView(p, active, sampleSessions(), now, testOpts)

	assert.Same(t, p, v.Project)
	require.Len(t, v.Active, 2)
	assert.Equal(t, "anna", v.Active[0].Employee)
	assert.Equal(t, 95, v.Active[0].Minutes)
	assert.Equal(t, "1h 35m", v.Active[0].Text)
	assert.Equal(t, "ben", v.Active[1].Employee)
	assert.Equal(t, 1, v.Active[1].Minutes)

	assert.Equal(t, 195, v.CompletedMinutes)
	assert.Equal(t, "3h 15m", v.CompletedText)
	require.Len(t, v.Sessions, 4)
	assert.True(t, v.Sessions[0].StartedAt.After(v.Sessions[3].StartedAt), "newest first")
}
