// Package access decides which projects a caller may see in reports.
package access

import (
	"strings"

	"github.com/joescharf/zeit/internal/models"
)

// Caller identifies who is asking.
type Caller struct {
	Email    string
	TeamCode string
}

// Policy grants full visibility to callers presenting the team code.
// Everyone else only sees the projects they created.
type Policy struct {
	TeamCode string
}

// IsTeamMember reports whether c presents the configured team code. An
// unset team code makes nobody a member.
func (p Policy) IsTeamMember(c Caller) bool {
	return p.TeamCode != "" && c.TeamCode == p.TeamCode
}

// CanView reports whether c may see project.
func (p Policy) CanView(c Caller, project *models.Project) bool {
	if project == nil {
		return false
	}
	if p.IsTeamMember(c) {
		return true
	}
	return c.Email != "" && strings.EqualFold(project.CreatedBy, c.Email)
}

// Visible returns a predicate bound to c, suitable for report filters.
func (p Policy) Visible(c Caller) func(*models.Project) bool {
	return func(project *models.Project) bool {
		return p.CanView(c, project)
	}
}
