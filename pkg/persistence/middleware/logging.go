package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.MachineStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs every call at debug level and failures at warn.
// A missing machine is not a failure.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.MachineStore) ports.MachineStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(ctx context.Context, op, id string, start time.Time, err error) {
	attrs := []any{"op", op, "session_id", id, "elapsed", time.Since(start)}
	if err != nil && !errors.Is(err, domain.ErrMachineNotFound) {
		m.logger.WarnContext(ctx, "Store call failed", append(attrs, "err", err)...)
		return
	}
	m.logger.DebugContext(ctx, "Store call", attrs...)
}

func (m *loggingMiddleware) Save(ctx context.Context, id string, snap *domain.Snapshot) error {
	start := time.Now()
	err := m.next.Save(ctx, id, snap)
	m.log(ctx, "save", id, start, err)
	return err
}

func (m *loggingMiddleware) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Load(ctx, id)
	m.log(ctx, "load", id, start, err)
	return snap, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, id)
	m.log(ctx, "delete", id, start, err)
	return err
}

func (m *loggingMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.log(ctx, "list", "", start, err)
	return ids, err
}
