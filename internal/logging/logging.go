// Package logging configures the process-wide slog logger and instruments
// HTTP handlers with request ids and access logs.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Supported log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// New builds a logger writing to w in the given format.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %v", format)
	}
	return slog.New(handler), nil
}

// Configure replaces the default logger. Call it first thing in main.
func Configure(w io.Writer, level slog.Level, format string) error {
	logger, err := New(w, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

type key int

const (
	loggerKey key = iota
	requestIDKey
)

// FromCtx returns the logger stored in ctx, or the default logger.
func FromCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}

// NewContext returns a copy of ctx carrying log.
func NewContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// RequestID returns the request id assigned by Middleware, if any.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// Middleware assigns each request an id (reusing an incoming X-Request-Id),
// echoes it in the response, stores a logger tagged with it on the request
// context and writes one access-log line per request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		log := FromCtx(r.Context()).With("request_id", id)
		ctx := context.WithValue(NewContext(r.Context(), log), requestIDKey, id)
		r = r.WithContext(ctx)

		rec := NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(ctx, level, "http request",
			"method", r.Method,
			"route", r.Pattern,
			"path", r.URL.Path,
			"status", rec.Status,
			"duration", time.Since(start),
		)
	})
}

// StatusRecorder remembers the status code written through it.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// NewStatusRecorder wraps w. The status defaults to 200 when the handler
// writes a body without calling WriteHeader.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (s *StatusRecorder) WriteHeader(code int) {
	s.Status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *StatusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
