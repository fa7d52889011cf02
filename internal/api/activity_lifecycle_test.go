package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/zeit/internal/ledger"
	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/report"
	"github.com/joescharf/zeit/internal/store"
)

func addEmployees(t *testing.T, s store.Store, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, s.CreateEmployee(context.Background(), &models.Employee{Name: n}))
	}
}

func TestActivityLifecycle_API(t *testing.T) {
	h, s, clock := setupTestServer(t)
	addEmployees(t, s, "anna", "ben")
	p := createProject(t, h, "Rohbau Nord", "anna@example.com")
	base := fmt.Sprintf("/api/v1/projects/%d", p.ID)

	w := do(t, h, "POST", base+"/start", `{"employee":"anna","category":"Drafting"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, h, "POST", base+"/start", `{"employee":"anna","category":"survey"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, "POST", base+"/start", `{"employee":"ben","category":"lunch"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, "POST", base+"/start", `{"employee":"carl","category":"survey"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Live view while running.
	clock.now = clock.now.Add(40 * time.Minute)
	w = do(t, h, "GET", base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var view report.ProjectView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, models.ProjectStatusRunning, view.Project.Status)
	require.Len(t, view.Active, 1)
	assert.Equal(t, 40, view.Active[0].Minutes)

	// Report is refused until the project is finished.
	w = do(t, h, "GET", base+"/report", "")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	clock.now = clock.now.Add(55 * time.Minute)
	w = do(t, h, "POST", base+"/stop", `{"employee":"anna"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stop ledger.StopResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stop))
	assert.Equal(t, 95, stop.DurationMinutes)
	assert.Equal(t, "1h 35m", stop.DurationText)

	w = do(t, h, "POST", base+"/stop", `{"employee":"anna"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", base+"/start", `{"employee":"ben","category":"survey"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	clock.now = clock.now.Add(30 * time.Minute)

	w = do(t, h, "POST", base+"/finish", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var finish ledger.FinishResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &finish))
	require.Len(t, finish.Closed, 1)
	assert.Equal(t, 30, finish.Closed[0].DurationMinutes)
	assert.Equal(t, models.ProjectStatusFinished, finish.Project.Status)

	w = do(t, h, "POST", base+"/finish", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, "GET", base+"/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rep report.ProjectReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, 125, rep.OverallMinutes)
	assert.Equal(t, "2h 5m", rep.OverallText)
	assert.Equal(t, 1, rep.CalendarDays)
	require.Len(t, rep.Employees, 2)
}

func TestRangeReport_Visibility(t *testing.T) {
	h, s, _ := setupTestServer(t)
	addEmployees(t, s, "anna")
	mine := createProject(t, h, "Mine", "anna@example.com")
	theirs := createProject(t, h, "Theirs", "ben@example.com")
	for _, id := range []int64{mine.ID, theirs.ID} {
		w := do(t, h, "POST", fmt.Sprintf("/api/v1/projects/%d/finish", id), "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	// Projects are created "now", so cover a wide range.
	path := "/api/v1/reports/range?from=2000-01-01&to=2999-12-31"

	w := do(t, h, "GET", path, "", HeaderUser, "anna@example.com")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep report.RangeReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	require.Len(t, rep.Projects, 1)
	assert.Equal(t, "Mine", rep.Projects[0].ProjectName)

	w = do(t, h, "GET", path+"&employees=true", "", HeaderUser, "anna@example.com", HeaderTeamCode, "BAU-42")
	require.Equal(t, http.StatusOK, w.Code)
	rep = report.RangeReport{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Len(t, rep.Projects, 2)
}

func TestReports_BadDates(t *testing.T) {
	h, _, _ := setupTestServer(t)

	w := do(t, h, "GET", "/api/v1/reports/range?from=2025-01-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "GET", "/api/v1/reports/period?from=01.01.2025&to=2025-01-31", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "GET", "/api/v1/reports/period?from=2025-02-01&to=2025-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rep report.PeriodReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Empty(t, rep.Projects)
	assert.Equal(t, 0, rep.TotalMinutes)
}
