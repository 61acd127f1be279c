package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/turing/internal/config"
	"github.com/aretw0/turing/internal/metrics"
	"github.com/aretw0/turing/pkg/adapters/file"
	"github.com/aretw0/turing/pkg/adapters/memory"
	"github.com/aretw0/turing/pkg/adapters/redis"
	"github.com/aretw0/turing/pkg/adapters/sqlite"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/aretw0/turing/pkg/persistence/middleware"
	"github.com/aretw0/turing/pkg/ports"
	"github.com/aretw0/turing/pkg/session"
	"go.opentelemetry.io/otel"
)

// openStore builds the MachineStore named by c. Stores that hold a
// connection return it as the closer; the redis store also brings a
// distributed locker for the session manager.
func openStore(c config.StoreConfig) (ports.MachineStore, []session.Option, func() error, error) {
	noop := func() error { return nil }

	switch c.Kind {
	case config.StoreFile:
		return file.New(c.Dir), nil, noop, nil

	case config.StoreRedis:
		var opts []redis.Option
		if c.Prefix != "" {
			opts = append(opts, redis.WithPrefix(c.Prefix))
		}
		if c.TTL > 0 {
			opts = append(opts, redis.WithTTL(c.TTL))
		}
		st := redis.New(c.Addr, c.Password, c.DB, opts...)
		locker := redis.NewLocker(st.Client(), st.Prefix())
		return st, []session.Option{session.WithLocker(locker)}, st.Close, nil

	case config.StoreSQLite:
		if c.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
				return nil, nil, nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(c.Path), err)
			}
		}
		st, err := sqlite.Open(c.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return st, nil, st.Close, nil
	}
	return memory.NewStore(), nil, noop, nil
}

// newManager wires the configured store, logger and metrics hooks into a
// session manager. col may be nil.
func newManager(col *metrics.Collector) (*session.Manager, func() error, error) {
	store, opts, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	store = middleware.Chain(store,
		middleware.NewTracingMiddleware(otel.GetTracerProvider(), cfg.Store.Kind),
		middleware.NewLoggingMiddleware(logger),
	)

	machineOpts := []machine.Option{
		machine.WithLogger(logger),
		machine.WithSpeed(cfg.Run.Speed),
	}
	if col != nil {
		machineOpts = append(machineOpts, machine.WithLifecycleHooks(col.Hooks()))
	}
	opts = append(opts,
		session.WithLogger(logger),
		session.WithMachineOptions(machineOpts...),
	)
	logger.Info("Machine store ready", "kind", cfg.Store.Kind)
	return session.NewManager(store, opts...), closeStore, nil
}
