// Package scheduler wires up the cron job that periodically refreshes the
// catalog row-count gauges.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"jobly/api-service/internal/catalog"
)

// StatsSource is implemented by *catalog.Service.
type StatsSource interface {
	Stats(ctx context.Context) (catalog.Stats, error)
}

// StatsSink is implemented by *metrics.Metrics.
type StatsSink interface {
	SetCatalogStats(catalog.Stats)
}

// Scheduler wraps robfig/cron and manages the stats refresh loop.
type Scheduler struct {
	cron   *cron.Cron
	source StatsSource
	sink   StatsSink
	spec   string // cron spec, e.g. "@every 5m"
}

// New creates a Scheduler that refreshes the stats every interval.
func New(source StatsSource, sink StatsSink, interval time.Duration) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		source: source,
		sink:   sink,
		spec:   fmt.Sprintf("@every %s", interval),
	}
}

// Start registers the job and starts the scheduler. Also runs one refresh
// immediately so the gauges are populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Refresh(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "spec", s.spec)

	go s.Refresh(ctx)
	return nil
}

// Shutdown stops the scheduler and waits for a running refresh to finish,
// or for ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

// Refresh reads the current row counts and publishes them.
// A failed read keeps the previous values.
func (s *Scheduler) Refresh(ctx context.Context) {
	st, err := s.source.Stats(ctx)
	if err != nil {
		slog.Warn("stats refresh failed", "err", err)
		return
	}
	s.sink.SetCatalogStats(st)
	slog.Debug("stats refreshed",
		"companies", st.Companies,
		"jobs", st.Jobs,
		"users", st.Users,
		"applications", st.Applications,
	)
}

// cronLogger routes robfig/cron's own logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
