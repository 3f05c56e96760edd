// Package catalog contains the business logic and HTTP handlers for the
// companies, jobs, users and applications of the job board.
//
// Service is transport-agnostic: it is used by the HTTP handlers in this
// package and by the gRPC server (grpcserver package).
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// DB is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Publisher is the subset of *redis.Client used to broadcast mutation events.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates all catalog business logic.
// It has no dependency on net/http and is shared by both transports.
type Service struct {
	db     DB
	events Publisher
	hasher PasswordHasher
}

// NewService returns a configured Service. events may be nil, in which case
// no mutation events are published.
func NewService(db DB, events Publisher, hasher PasswordHasher) *Service {
	return &Service{db: db, events: events, hasher: hasher}
}

// Stats holds row counts per table.
type Stats struct {
	Companies    int64
	Jobs         int64
	Users        int64
	Applications int64
}

// Stats counts the rows of every catalog table in a single round trip.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx,
		`SELECT (SELECT count(*) FROM companies),
		        (SELECT count(*) FROM jobs),
		        (SELECT count(*) FROM users),
		        (SELECT count(*) FROM applications)`,
	).Scan(&st.Companies, &st.Jobs, &st.Users, &st.Applications)
	if err != nil {
		return Stats{}, fmt.Errorf("stats query: %w", err)
	}
	return st, nil
}

// publish broadcasts an event on the channel named after its type.
// Failures are logged and never fail the calling operation.
func (s *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	if s.events == nil {
		return
	}
	payload["type"] = eventType
	event, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("marshal event failed", "type", eventType, "err", err)
		return
	}
	if err := s.events.Publish(ctx, eventType, event).Err(); err != nil {
		slog.Warn("publish event failed", "type", eventType, "err", err)
	}
}
