package rdbms

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Factory resolves a backend name to a fresh DbInterface. The original
// driver loaded a shared library per backend at runtime (dlopen/dlsym on
// Linux, LoadLibrary on Windows) and called its exported get_dblib symbol;
// Go has no equivalent of loading a plugin built as part of the very same
// module, so each backend package registers a constructor here at
// package-init time instead — a static table doing the job the dynamic
// loader did, without the platform-specific loader code.
type Factory struct {
	mu        sync.RWMutex
	providers map[string]func() DbInterface
	live      map[DbInterface]struct{}
	logger    *slog.Logger
}

var defaultFactory = &Factory{
	providers: map[string]func() DbInterface{},
	live:      map[DbInterface]struct{}{},
}

// Register adds a backend constructor under name. Backend packages call
// this from an init() func so importing the package for its side effect is
// enough to make the backend available through DefaultFactory.
func Register(name string, ctor func() DbInterface) {
	defaultFactory.mu.Lock()
	defer defaultFactory.mu.Unlock()
	defaultFactory.providers[name] = ctor
}

// DefaultFactory returns the package-wide registry populated by every
// imported backend package's init().
func DefaultFactory() *Factory { return defaultFactory }

// SetLogger sets the logger passed to every DbInterface constructed by
// GetInterface from this point on. Callers that never set one get
// slog.Default() at construction time.
func (f *Factory) SetLogger(logger *slog.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
}

// GetInterface constructs a fresh DbInterface for the named backend.
// Oracle is intentionally never registered: the original getManagerInterface
// dispatch recurses into itself with no base case for any backend, which
// this module treats as a signal the capability was never finished rather
// than something to paper over, so "oracle" (like any other unregistered
// name) reports ErrUnimplemented.
func (f *Factory) GetInterface(name string) (DbInterface, error) {
	f.mu.RLock()
	ctor, ok := f.providers[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("rdbms: backend %q: %w", name, ErrUnimplemented)
	}
	db := ctor()
	f.mu.Lock()
	logger := f.logger
	f.live[db] = struct{}{}
	f.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	db.Init(logger)
	return db, nil
}

// ReleaseInterface disconnects db and stops tracking it. Callers that
// already called Disconnect themselves may still call this to drop the
// factory's reference; a second call is a no-op.
func (f *Factory) ReleaseInterface(ctx context.Context, db DbInterface) error {
	f.mu.Lock()
	_, tracked := f.live[db]
	delete(f.live, db)
	f.mu.Unlock()
	if !tracked {
		return nil
	}
	return db.Disconnect(ctx)
}

// Terminate disconnects every interface this factory has issued and not
// yet released, concurrently and independent of order, then clears the
// tracking set. It mirrors the original driver's shutdown pass over every
// still-open connection handle, done here with a bounded goroutine fan-out
// instead of a sequential C++ loop since releasing N unrelated connections
// has no ordering requirement.
func (f *Factory) Terminate(ctx context.Context) error {
	f.mu.Lock()
	dbs := make([]DbInterface, 0, len(f.live))
	for db := range f.live {
		dbs = append(dbs, db)
	}
	f.live = map[DbInterface]struct{}{}
	f.mu.Unlock()

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for _, db := range dbs {
		db := db
		group.Go(func() error { return db.Disconnect(gctx) })
	}
	return group.Wait()
}

// AvailableDrivers lists every backend name known to the original driver
// contract, regardless of whether this build actually registered a
// provider for it — mirroring getAvailableDrivers, which enumerated names
// unconditionally rather than querying what was actually loadable.
func (f *Factory) AvailableDrivers() []string {
	return []string{"odbc", "mysql", "pgsql", "oracle", "sqlite"}
}

// RegisteredDrivers lists the backend names this build can actually
// construct, in sorted order.
func (f *Factory) RegisteredDrivers() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.providers))
	for name := range f.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
