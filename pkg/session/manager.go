package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/turing/internal/logging"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/aretw0/turing/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/turing/session"

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live machines of a process and persists them through a
// MachineStore. Access to one session is serialized by a reference counted
// local lock and, optionally, a distributed lock.
type Manager struct {
	store ports.MachineStore

	mu    sync.Mutex            // Global lock for the locks map
	locks map[string]*lockEntry // Map of active locks

	liveMu sync.RWMutex
	live   map[string]*machine.Machine

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer

	machineOpts []machine.Option
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTracerProvider replaces the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Manager) {
		m.tracer = tp.Tracer(tracerName)
	}
}

// WithMachineOptions are applied to every machine the Manager creates or
// resumes, e.g. lifecycle hooks feeding metrics.
func WithMachineOptions(opts ...machine.Option) Option {
	return func(m *Manager) {
		m.machineOpts = append(m.machineOpts, opts...)
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.MachineStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*machine.Machine),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

func (m *Manager) startSpan(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "session."+op, trace.WithAttributes(attribute.String("session_id", id)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (m *Manager) lookup(id string) (*machine.Machine, bool) {
	m.liveMu.RLock()
	defer m.liveMu.RUnlock()
	mc, ok := m.live[id]
	return mc, ok
}

func (m *Manager) setLive(id string, mc *machine.Machine) {
	m.liveMu.Lock()
	defer m.liveMu.Unlock()
	if mc == nil {
		delete(m.live, id)
		return
	}
	m.live[id] = mc
}

// Create opens a machine from snap (a blank machine when nil), stores it
// and returns its new ID.
func (m *Manager) Create(ctx context.Context, snap *domain.Snapshot) (string, *machine.Machine, error) {
	id := uuid.Must(uuid.NewV7()).String()
	ctx, span := m.startSpan(ctx, "create", id)

	var (
		mc  *machine.Machine
		err error
	)
	if snap == nil {
		mc = machine.New(m.machineOpts...)
	} else if mc, err = machine.Open(snap, m.machineOpts...); err != nil {
		endSpan(span, err)
		return "", nil, err
	}

	err = m.WithLock(ctx, id, func(ctx context.Context) error {
		if err := m.store.Save(ctx, id, mc.Save()); err != nil {
			return fmt.Errorf("failed to persist new machine: %w", err)
		}
		m.setLive(id, mc)
		return nil
	})
	endSpan(span, err)
	if err != nil {
		return "", nil, err
	}

	m.logger.Debug("Machine created", "session_id", id)
	return id, mc, nil
}

// Get returns the live machine, resuming it from the store when needed.
func (m *Manager) Get(ctx context.Context, id string) (*machine.Machine, error) {
	ctx, span := m.startSpan(ctx, "get", id)

	var mc *machine.Machine
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		mc, err = m.get(ctx, id)
		return err
	})
	endSpan(span, err)
	return mc, err
}

// get requires the session lock.
func (m *Manager) get(ctx context.Context, id string) (*machine.Machine, error) {
	if mc, ok := m.lookup(id); ok {
		return mc, nil
	}
	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	mc, err := machine.Open(snap, m.machineOpts...)
	if err != nil {
		return nil, err
	}
	m.setLive(id, mc)
	m.logger.Debug("Machine resumed from store", "session_id", id)
	return mc, nil
}

// Do runs fn against the session's machine while holding its lock.
func (m *Manager) Do(ctx context.Context, id string, fn func(context.Context, *machine.Machine) error) error {
	ctx, span := m.startSpan(ctx, "do", id)
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		mc, err := m.get(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, mc)
	})
	endSpan(span, err)
	return err
}

// Update is Do followed by a Persist when fn succeeds. Machines in run mode
// are not persisted; their edit-mode snapshot is saved when they leave it.
func (m *Manager) Update(ctx context.Context, id string, fn func(context.Context, *machine.Machine) error) error {
	ctx, span := m.startSpan(ctx, "update", id)
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		mc, err := m.get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, mc); err != nil {
			return err
		}
		if mc.Running() {
			return nil
		}
		return m.store.Save(ctx, id, mc.Save())
	})
	endSpan(span, err)
	return err
}

// Persist saves the live machine to the store.
func (m *Manager) Persist(ctx context.Context, id string) error {
	ctx, span := m.startSpan(ctx, "persist", id)
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		mc, ok := m.lookup(id)
		if !ok {
			return fmt.Errorf("%w: %s is not live", domain.ErrMachineNotFound, id)
		}
		return m.store.Save(ctx, id, mc.Save())
	})
	endSpan(span, err)
	return err
}

// Close persists the machine and drops it from memory. Closing a machine
// that is not live is a no-op.
func (m *Manager) Close(ctx context.Context, id string) error {
	ctx, span := m.startSpan(ctx, "close", id)
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		mc, ok := m.lookup(id)
		if !ok {
			return nil
		}
		mc.Pause()
		if err := m.store.Save(ctx, id, mc.Save()); err != nil {
			return err
		}
		m.setLive(id, nil)
		return nil
	})
	endSpan(span, err)
	return err
}

// Delete drops the machine from memory and from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	ctx, span := m.startSpan(ctx, "delete", id)
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if mc, ok := m.lookup(id); ok {
			mc.Pause()
			m.setLive(id, nil)
		}
		return m.store.Delete(ctx, id)
	})
	endSpan(span, err)
	return err
}

// List returns the stored and live IDs, sorted and deduplicated.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ctx, span := m.startSpan(ctx, "list", "")
	ids, err := m.store.List(ctx)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	m.liveMu.RLock()
	for id := range m.live {
		seen[id] = true
	}
	m.liveMu.RUnlock()

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// CloseAll persists and drops every live machine. Errors are joined.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.liveMu.RLock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.liveMu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil {
			m.logger.Error("Failed to close machine", "session_id", id, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store returns the underlying machine store.
func (m *Manager) Store() ports.MachineStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
