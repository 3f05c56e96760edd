package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Application links a user to a job they track or applied to.
type Application struct {
	Username string `json:"username"`
	JobID    int    `json:"jobId"`
	State    State  `json:"state"`
}

// ApplicationRequest is the optional body of POST and the body of PATCH
// /users/{username}/jobs/{id}.
type ApplicationRequest struct {
	State string `json:"state" validate:"omitempty,oneof=INTERESTED APPLIED ACCEPTED REJECTED"`
}

const applicationCols = `username, job_id, state`

func scanApplication(row pgx.Row, a *Application) error {
	return row.Scan(&a.Username, &a.JobID, &a.State)
}

// Apply records that username applied to (or is interested in) jobID.
// An empty state defaults to APPLIED.
// Returns ErrNotFound if the user or the job does not exist.
func (s *Service) Apply(ctx context.Context, username string, jobID int, stateStr string) (*Application, error) {
	state := StateApplied
	if stateStr != "" {
		st, err := ParseState(stateStr)
		if err != nil {
			return nil, &ValidationError{Msg: err.Error()}
		}
		state = st
	}
	if !IsInitial(state) {
		return nil, badRequest("a new application must be %s or %s", StateInterested, StateApplied)
	}

	if err := s.ensureExists(ctx, `SELECT 1 FROM users WHERE username = $1`, username, "No user: %s"); err != nil {
		return nil, err
	}
	if err := s.ensureExists(ctx, `SELECT 1 FROM jobs WHERE id = $1`, jobID, "No job: %v"); err != nil {
		return nil, err
	}

	var a Application
	err := scanApplication(s.db.QueryRow(ctx,
		`INSERT INTO applications (username, job_id, state)
		 VALUES ($1, $2, $3)
		 RETURNING `+applicationCols,
		username, jobID, string(state),
	), &a)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return nil, badRequest("%s already applied to job %d", username, jobID)
		case pgForeignKeyViolation:
			// user or job deleted between the checks and the insert
			return nil, notFound("No user or job: %s/%d", username, jobID)
		}
		return nil, fmt.Errorf("apply: %w", err)
	}

	s.publish(ctx, "EVENT_APPLICATION_CREATED", map[string]any{
		"username": username,
		"jobId":    jobID,
		"state":    string(state),
	})
	return &a, nil
}

// MoveApplication transitions an application to a new state.
// Returns ErrNotFound if the application does not exist and a
// *ValidationError if the state machine rejects the transition.
func (s *Service) MoveApplication(ctx context.Context, username string, jobID int, newStateStr string) (*Application, error) {
	newState, err := ParseState(newStateStr)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	var currentStr string
	err = s.db.QueryRow(ctx,
		`SELECT state FROM applications WHERE username = $1 AND job_id = $2`,
		username, jobID,
	).Scan(&currentStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("No application: %s/%d", username, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("moveApplication select: %w", err)
	}

	current, _ := ParseState(currentStr)
	if !IsTransitionAllowed(current, newState) {
		return nil, badRequest("transition %s → %s is not allowed", current, newState)
	}

	// The state guard makes a concurrent move lose instead of skipping a step.
	var a Application
	err = scanApplication(s.db.QueryRow(ctx,
		`UPDATE applications
		 SET state = $1
		 WHERE username = $2 AND job_id = $3 AND state = $4
		 RETURNING `+applicationCols,
		string(newState), username, jobID, string(current),
	), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, badRequest("application %s/%d changed concurrently", username, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("moveApplication update: %w", err)
	}

	s.publish(ctx, "EVENT_APPLICATION_MOVED", map[string]any{
		"username": username,
		"jobId":    jobID,
		"from":     string(current),
		"to":       string(newState),
	})
	return &a, nil
}

func (s *Service) ensureExists(ctx context.Context, query string, key any, notFoundFmt string) error {
	var one int
	err := s.db.QueryRow(ctx, query, key).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(notFoundFmt, key)
	}
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	return nil
}
