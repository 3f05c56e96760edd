// Package shutdown stops the servers and workers of the process together.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Shutdowner represents a component that can shut down.
type Shutdowner interface {
	Shutdown(context.Context) error
}

// Func adapts a plain function to Shutdowner.
type Func func(context.Context) error

func (f Func) Shutdown(ctx context.Context) error { return f(ctx) }

// Handler shuts down multiple components once a context is cancelled.
type Handler struct {
	waitPeriod time.Duration
	components map[string]Shutdowner
	order      []string
}

// NewHandler creates a Handler that gives every component gracePeriod to
// finish.
func NewHandler(gracePeriod time.Duration) *Handler {
	return &Handler{waitPeriod: gracePeriod, components: map[string]Shutdowner{}}
}

// Add registers a component under name. Must be called before Wait.
func (h *Handler) Add(name string, c Shutdowner) {
	if _, ok := h.components[name]; !ok {
		h.order = append(h.order, name)
	}
	h.components[name] = c
}

// Wait blocks until ctx is cancelled, then shuts down all components
// concurrently and returns once all of them are done. Each component gets
// its own grace period.
func (h *Handler) Wait(ctx context.Context) error {
	<-ctx.Done()

	p := pool.NewWithResults[error]()
	for _, name := range h.order {
		c := h.components[name]
		p.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), h.waitPeriod)
			defer cancel()

			if err := c.Shutdown(ctx); err != nil {
				slog.Error("shutdown failed", "component", name, "err", err)
				return err
			}
			slog.Info("stopped", "component", name)
			return nil
		})
	}
	return errors.Join(p.Wait()...)
}
