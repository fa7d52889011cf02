package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/zeit/internal/access"
	"github.com/joescharf/zeit/internal/ledger"
	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/report"
	"github.com/joescharf/zeit/internal/store"
)

// Server exposes the ledger and reports as MCP tools.
type Server struct {
	store   store.Store
	ledger  *ledger.Ledger
	reports *report.Service
	policy  access.Policy
	caller  access.Caller
	version string
}

// NewServer creates the MCP server wrapper. Reports are filtered for caller.
func NewServer(s store.Store, l *ledger.Ledger, reports *report.Service, policy access.Policy, caller access.Caller, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{
		store:   s,
		ledger:  l,
		reports: reports,
		policy:  policy,
		caller:  caller,
		version: version,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("zeit", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.projectViewTool())
	srv.AddTool(s.startActivityTool())
	srv.AddTool(s.stopActivityTool())
	srv.AddTool(s.finishProjectTool())
	srv.AddTool(s.projectReportTool())
	srv.AddTool(s.rangeReportTool())
	srv.AddTool(s.periodReportTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// zeit_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zeit_list_projects",
		mcp.WithDescription("List projects in dashboard order (stopped, running, paused, finished). Returns a JSON array with id, name, customer, status and timestamps."),
		mcp.WithString("status", mcp.Description("Filter by status"), mcp.Enum("stopped", "running", "paused", "finished")),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := request.GetString("status", "")
	projects, err := s.store.ListProjects(ctx, store.ProjectListFilter{Status: models.ProjectStatus(status)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}
	models.SortProjects(projects)
	if projects == nil {
		projects = []*models.Project{}
	}
	return jsonResult(projects)
}

// zeit_project_view
func (s *Server) projectViewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zeit_project_view",
		mcp.WithDescription("Show a project's live state: running activities with their current duration and completed time per category."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project ID or exact name")),
	)
	return tool, s.handleProjectView
}

func (s *Server) handleProjectView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := s.requireProject(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	view, err := s.reports.ProjectView(ctx, p.ID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(view)
}

// zeit_start_activity
func (s *Server) startActivityTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zeit_start_activity",
		mcp.WithDescription("Start timing an activity for an employee on a project. Fails if the employee already has a running activity on it."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project ID or exact name")),
		mcp.WithString("employee", mcp.Required(), mcp.Description("Employee name")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Work category, e.g. "+joinCategories(s.ledger.Categories()))),
	)
	return tool, s.handleStartActivity
}

func (s *Server) handleStartActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := s.requireProject(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	employee, err := request.RequireString("employee")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: employee"), nil
	}
	category, err := request.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: category"), nil
	}

	if err := s.ledger.StartActivity(ctx, p.ID, employee, category); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Started %s for %s on %q", models.NormalizeCategory(category), employee, p.Name)), nil
}

// zeit_stop_activity
func (s *Server) stopActivityTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zeit_stop_activity",
		mcp.WithDescription("Stop an employee's running activity on a project and book its duration."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project ID or exact name")),
		mcp.WithString("employee", mcp.Required(), mcp.Description("Employee name")),
	)
	return tool, s.handleStopActivity
}

func (s *Server) handleStopActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := s.requireProject(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	employee, err := request.RequireString("employee")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: employee"), nil
	}

	res, err := s.ledger.StopActivity(ctx, p.ID, employee)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

// zeit_finish_project
func (s *Server) finishProjectTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zeit_finish_project",
		mcp.WithDescription("Finish a project. Every running activity on it is stopped at the same instant."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project ID or exact name")),
	)
	return tool, s.handleFinishProject
}

func (s *Server) handleFinishProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := s.requireProject(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	res, err := s.ledger.FinishProject(ctx, p.ID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

// zeit_project_report
func (s *Server) projectReportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zeit_project_report",
		mcp.WithDescription("Report for a finished project: total time, calendar days, per-category and per-employee totals."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project ID or exact name")),
	)
	return tool, s.handleProjectReport
}

func (s *Server) handleProjectReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := s.requireProject(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	rep, err := s.reports.ProjectReport(ctx, p.ID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rep)
}

// zeit_range_report
func (s *Server) rangeReportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zeit_range_report",
		mcp.WithDescription("Summarise finished projects created between two dates (inclusive)."),
		mcp.WithString("from", mcp.Required(), mcp.Description("First day, YYYY-MM-DD")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Last day, YYYY-MM-DD")),
		mcp.WithBoolean("employees", mcp.Description("Include the per-employee breakdown")),
	)
	return tool, s.handleRangeReport
}

func (s *Server) handleRangeReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, errResult := requireDates(request)
	if errResult != nil {
		return errResult, nil
	}
	var opts []report.RangeOption
	if request.GetBool("employees", false) {
		opts = append(opts, report.WithEmployees())
	}
	rep, err := s.reports.RangeReport(ctx, from, to, s.policy.Visible(s.caller), opts...)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rep)
}

// zeit_period_report
func (s *Server) periodReportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zeit_period_report",
		mcp.WithDescription("Summarise work on any project whose sessions started between two dates (inclusive), grouped by employee and category."),
		mcp.WithString("from", mcp.Required(), mcp.Description("First day, YYYY-MM-DD")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Last day, YYYY-MM-DD")),
	)
	return tool, s.handlePeriodReport
}

func (s *Server) handlePeriodReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, errResult := requireDates(request)
	if errResult != nil {
		return errResult, nil
	}
	rep, err := s.reports.PeriodReport(ctx, from, to, s.policy.Visible(s.caller))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rep)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) requireProject(ctx context.Context, request mcp.CallToolRequest) (*models.Project, *mcp.CallToolResult) {
	ref, err := request.RequireString("project")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: project")
	}
	p, err := store.ResolveProject(ctx, s.store, ref)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("project not found: %s", ref))
	}
	return p, nil
}

func requireDates(request mcp.CallToolRequest) (from, to time.Time, errResult *mcp.CallToolResult) {
	fromStr, err := request.RequireString("from")
	if err != nil {
		return from, to, mcp.NewToolResultError("missing required parameter: from")
	}
	toStr, err := request.RequireString("to")
	if err != nil {
		return from, to, mcp.NewToolResultError("missing required parameter: to")
	}
	if from, err = report.ParseDate(fromStr); err != nil {
		return from, to, mcp.NewToolResultError(fmt.Sprintf("invalid from date %q, expected YYYY-MM-DD", fromStr))
	}
	if to, err = report.ParseDate(toStr); err != nil {
		return from, to, mcp.NewToolResultError(fmt.Sprintf("invalid to date %q, expected YYYY-MM-DD", toStr))
	}
	return from, to, nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func joinCategories(cats []models.Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
