package middleware

import (
	"context"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type tracingMiddleware struct {
	next   ports.MachineStore
	tracer trace.Tracer
	kind   string
}

// NewTracingMiddleware opens a "store.<op>" span around every call. kind
// names the backend and is recorded as the store.kind attribute.
func NewTracingMiddleware(tp trace.TracerProvider, kind string) Middleware {
	tracer := tp.Tracer("github.com/aretw0/turing/store")
	return func(next ports.MachineStore) ports.MachineStore {
		return &tracingMiddleware{next: next, tracer: tracer, kind: kind}
	}
}

func (m *tracingMiddleware) start(ctx context.Context, op, id string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("store.kind", m.kind)}
	if id != "" {
		attrs = append(attrs, attribute.String("session_id", id))
	}
	return m.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (m *tracingMiddleware) Save(ctx context.Context, id string, snap *domain.Snapshot) error {
	ctx, span := m.start(ctx, "save", id)
	err := m.next.Save(ctx, id, snap)
	finish(span, err)
	return err
}

func (m *tracingMiddleware) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	ctx, span := m.start(ctx, "load", id)
	snap, err := m.next.Load(ctx, id)
	finish(span, err)
	return snap, err
}

func (m *tracingMiddleware) Delete(ctx context.Context, id string) error {
	ctx, span := m.start(ctx, "delete", id)
	err := m.next.Delete(ctx, id)
	finish(span, err)
	return err
}

func (m *tracingMiddleware) List(ctx context.Context) ([]string, error) {
	ctx, span := m.start(ctx, "list", "")
	ids, err := m.next.List(ctx)
	span.SetAttributes(attribute.Int("store.count", len(ids)))
	finish(span, err)
	return ids, err
}
