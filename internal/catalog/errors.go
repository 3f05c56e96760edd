package catalog

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"jobly/api-service/internal/sqlbuilder"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

var (
	// ErrNotFound is matched (errors.Is) by every lookup or mutation that
	// targets a missing row.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated is returned when the gateway forwarded no caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the caller lacks the required privilege.
	ErrForbidden = errors.New("unauthorized")
)

// notFoundError keeps a resource-specific message while matching ErrNotFound.
type notFoundError struct{ msg string }

func (e notFoundError) Error() string        { return e.msg }
func (e notFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(format string, args ...any) error {
	return notFoundError{msg: fmt.Sprintf(format, args...)}
}

// ValidationError wraps a user-facing client-input error. Details lists the
// individual violations when the input was checked field by field.
type ValidationError struct {
	Msg     string
	Details []string
}

func (e *ValidationError) Error() string { return e.Msg }

func badRequest(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// patchError turns a partial-update compilation failure into a client error.
func patchError(err error) error {
	switch {
	case errors.Is(err, sqlbuilder.ErrNoData):
		return &ValidationError{Msg: "No data"}
	case errors.Is(err, sqlbuilder.ErrUnknownField):
		return &ValidationError{Msg: err.Error()}
	}
	return err
}

// PostgreSQL error codes the service reacts to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
