package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/zeit/internal/access"
	"github.com/joescharf/zeit/internal/ledger"
	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/report"
	"github.com/joescharf/zeit/internal/store"
)

// Headers carrying the caller identity. Authentication happens upstream.
const (
	HeaderUser     = "X-Zeit-User"
	HeaderTeamCode = "X-Zeit-Team-Code"
)

// Server provides the REST API handlers.
type Server struct {
	store   store.Store
	ledger  *ledger.Ledger
	reports *report.Service
	policy  access.Policy
	log     *slog.Logger
}

// NewServer creates a new API server.
// A nil logger discards request logs.
func NewServer(s store.Store, l *ledger.Ledger, reports *report.Service, policy access.Policy, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		store:   s,
		ledger:  l,
		reports: reports,
		policy:  policy,
		log:     log,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("GET /api/v1/projects", s.listProjects)
	mux.HandleFunc("POST /api/v1/projects", s.createProject)
	mux.HandleFunc("POST /api/v1/projects/bulk-delete", s.bulkDeleteProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.getProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", s.deleteProject)

	mux.HandleFunc("POST /api/v1/projects/{id}/start", s.startActivity)
	mux.HandleFunc("POST /api/v1/projects/{id}/stop", s.stopActivity)
	mux.HandleFunc("POST /api/v1/projects/{id}/finish", s.finishProject)
	mux.HandleFunc("GET /api/v1/projects/{id}/report", s.projectReport)

	mux.HandleFunc("GET /api/v1/reports/range", s.rangeReport)
	mux.HandleFunc("GET /api/v1/reports/period", s.periodReport)

	mux.HandleFunc("GET /api/v1/categories", s.listCategories)

	mux.HandleFunc("GET /api/v1/employees", s.listEmployees)
	mux.HandleFunc("POST /api/v1/employees", s.createEmployee)
	mux.HandleFunc("DELETE /api/v1/employees/{name}", s.deleteEmployee)

	mux.HandleFunc("GET /api/v1/customers", s.listCustomers)
	mux.HandleFunc("POST /api/v1/customers", s.createCustomer)
	mux.HandleFunc("DELETE /api/v1/customers/{name}", s.deleteCustomer)

	return corsMiddleware(loggingMiddleware(s.log, mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderUser+", "+HeaderTeamCode)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps domain errors to HTTP status codes.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyActive),
		errors.Is(err, ledger.ErrAlreadyFinished),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidCategory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrNoActiveSession):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrNotFinished):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func callerFrom(r *http.Request) access.Caller {
	return access.Caller{
		Email:    strings.TrimSpace(r.Header.Get(HeaderUser)),
		TeamCode: strings.TrimSpace(r.Header.Get(HeaderTeamCode)),
	}
}

func projectID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// --- Projects ---

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	filter := store.ProjectListFilter{
		Status:    models.ProjectStatus(r.URL.Query().Get("status")),
		CreatedBy: r.URL.Query().Get("created_by"),
	}
	projects, err := s.store.ListProjects(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	models.SortProjects(projects)
	if projects == nil {
		projects = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.reports.ProjectView(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Customer string `json:"customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p := &models.Project{
		Name:      req.Name,
		Customer:  strings.TrimSpace(req.Customer),
		CreatedBy: callerFrom(r).Email,
	}
	if err := s.store.CreateProject(r.Context(), p); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := s.store.DeleteProjects(r.Context(), []int64{id})
	if err != nil {
		writeErr(w, err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("project %d: not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkDeleteProjects(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	n, err := s.store.DeleteProjects(r.Context(), req.IDs)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// --- Activities ---

func (s *Server) startActivity(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Employee string `json:"employee"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Employee) == "" {
		writeError(w, http.StatusBadRequest, "employee is required")
		return
	}

	if err := s.ledger.StartActivity(r.Context(), id, req.Employee, req.Category); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"project_id": id,
		"employee":   strings.TrimSpace(req.Employee),
		"category":   models.NormalizeCategory(req.Category),
		"status":     models.ProjectStatusRunning,
	})
}

func (s *Server) stopActivity(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Employee string `json:"employee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Employee) == "" {
		writeError(w, http.StatusBadRequest, "employee is required")
		return
	}

	res, err := s.ledger.StopActivity(r.Context(), id, req.Employee)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) finishProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.ledger.FinishProject(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Reports ---

func (s *Server) projectReport(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.reports.ProjectReport(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// dateRange reads the required from/to query parameters (YYYY-MM-DD).
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := report.ParseDate(q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q, expected YYYY-MM-DD", q.Get("from"))
	}
	to, err := report.ParseDate(q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q, expected YYYY-MM-DD", q.Get("to"))
	}
	return from, to, nil
}

func (s *Server) rangeReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var opts []report.RangeOption
	if withEmployees, _ := strconv.ParseBool(r.URL.Query().Get("employees")); withEmployees {
		opts = append(opts, report.WithEmployees())
	}

	rep, err := s.reports.RangeReport(r.Context(), from, to, s.policy.Visible(callerFrom(r)), opts...)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) periodReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.reports.PeriodReport(r.Context(), from, to, s.policy.Visible(callerFrom(r)))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Categories())
}

// --- Employees & customers ---

type nameRequest struct {
	Name string `json:"name"`
}

func decodeName(r *http.Request) (string, error) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", errors.New("invalid JSON")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", errors.New("name is required")
	}
	return name, nil
}

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := s.store.ListEmployees(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if employees == nil {
		employees = []*models.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	name, err := decodeName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e := &models.Employee{Name: name}
	if err := s.store.CreateEmployee(r.Context(), e); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteEmployee(r.Context(), r.PathValue("name")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.store.ListCustomers(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if customers == nil {
		customers = []*models.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	name, err := decodeName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := &models.Customer{Name: name}
	if err := s.store.CreateCustomer(r.Context(), c); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCustomer(r.Context(), r.PathValue("name")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
