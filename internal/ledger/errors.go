package ledger

import (
	"errors"
	"fmt"

	"github.com/joescharf/zeit/internal/store"
)

var (
	// ErrNotFound is returned for an unknown project or employee.
	ErrNotFound = store.ErrNotFound
	// ErrAlreadyActive is returned when the employee already runs an
	// activity on the project.
	ErrAlreadyActive = errors.New("activity already running")
	// ErrNoActiveSession is returned when stopping without a running activity.
	ErrNoActiveSession = errors.New("no running activity")
	// ErrInvalidCategory is returned for a category outside the configured set.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrAlreadyFinished is returned when changing a finished project.
	ErrAlreadyFinished = errors.New("project already finished")
	// ErrInconsistentState is returned when a multi-step write could not be
	// applied. The transaction is rolled back, so no partial state remains.
	ErrInconsistentState = errors.New("inconsistent state")
)

func inconsistent(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInconsistentState, op, err)
}
