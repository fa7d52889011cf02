package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joescharf/zeit/internal/models"
)

// ResolveProject finds a project by numeric ID, falling back to an exact
// case-insensitive name match. Two projects sharing the name is an error.
func ResolveProject(ctx context.Context, s Store, ref string) (*models.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("project reference is empty: %w", ErrNotFound)
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		p, err := s.GetProject(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	projects, err := s.ListProjects(ctx, ProjectListFilter{})
	if err != nil {
		return nil, err
	}
	var match *models.Project
	for _, p := range projects {
		if strings.EqualFold(p.Name, ref) {
			if match != nil {
				return nil, fmt.Errorf("project name %q is ambiguous, use the ID", ref)
			}
			match = p
		}
	}
	if match == nil {
		return nil, fmt.Errorf("project %q: %w", ref, ErrNotFound)
	}
	return match, nil
}
