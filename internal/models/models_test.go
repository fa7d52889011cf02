package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewCategorySet_Defaults(t *testing.T) {
	cs := NewCategorySet(nil)
	assert.Equal(t, DefaultCategories, cs.List())
}

func TestNewCategorySet_NormalizesAndDedupes(t *testing.T) {
	cs := NewCategorySet([]Category{" Meeting", "site", "", "MEETING", "Site "})
	assert.Equal(t, []Category{"meeting", "site"}, cs.List())
}

func TestCategorySet_Resolve(t *testing.T) {
	cs := NewCategorySet(nil)

	c, ok := cs.Resolve("  Drafting ")
	assert.True(t, ok)
	assert.Equal(t, Category("drafting"), c)

	c, ok = cs.Resolve("lunch")
	assert.False(t, ok)
	assert.Equal(t, Category("lunch"), c)

	assert.True(t, cs.Contains("survey"))
	assert.False(t, cs.Contains("Survey"))
}

func TestCategorySet_ListIsACopy(t *testing.T) {
	cs := NewCategorySet(nil)
	list := cs.List()
	list[0] = "changed"
	assert.Equal(t, Category("discussion"), cs.List()[0])
}

func TestParseCategories(t *testing.T) {
	assert.Equal(t, []Category{"a", "b"}, ParseCategories([]string{"a", "b"}))
	assert.Empty(t, ParseCategories(nil))
}

func TestSortProjects(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }
	finishedAt := func(h int) *time.Time { t := at(h); return &t }

	projects := []*Project{
		{Name: "finished-late", Status: ProjectStatusFinished, CreatedAt: at(0), FinishedAt: finishedAt(20)},
		{Name: "paused", Status: ProjectStatusPaused, CreatedAt: at(1)},
		{Name: "running-new", Status: ProjectStatusRunning, CreatedAt: at(5)},
		{Name: "finished-early", Status: ProjectStatusFinished, CreatedAt: at(9), FinishedAt: finishedAt(10)},
		{Name: "running-old", Status: ProjectStatusRunning, CreatedAt: at(2)},
		{Name: "stopped", Status: ProjectStatusStopped, CreatedAt: at(8)},
	}
	SortProjects(projects)

	var names []string
	for _, p := range projects {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"stopped", "running-old", "running-new", "paused", "finished-early", "finished-late"}, names)
}

func TestProject_IsFinished(t *testing.T) {
	assert.True(t, (&Project{Status: ProjectStatusFinished}).IsFinished())
	assert.False(t, (&Project{Status: ProjectStatusPaused}).IsFinished())
}
