package visa

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/electric-propulsion/go-epcomms/internal/pool"
	"github.com/electric-propulsion/go-epcomms/logger"
)

// ListAll is the resource expression matching every resource.
const ListAll = "?*"

// Registry owns a ResourceManager and the sessions opened through it.
//
// Resource managers are not safe for concurrent discovery or opening, so every
// ListResources and Open call goes through the registry's lock. This lock is
// shared by all sessions of the registry and is distinct from each
// connection's own lock.
type Registry struct {
	mu       sync.Mutex
	manager  ResourceManager
	sessions *xsync.MapOf[uint64, Resource]
	nextID   atomic.Uint64
	closed   atomic.Bool
	logger   logger.Logger
}

// NewRegistry creates a registry around manager. Callers must Close it when
// done.
func NewRegistry(manager ResourceManager, l logger.Logger) *Registry {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Registry{
		manager:  manager,
		sessions: xsync.NewMapOf[uint64, Resource](),
		logger:   l,
	}
}

// ListResources returns the resources matching query. An empty query lists
// everything.
func (r *Registry) ListResources(query string) ([]string, error) {
	if query == "" {
		query = ListAll
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	return r.manager.ListResources(query)
}

// Sessions returns the names of the sessions currently open.
func (r *Registry) Sessions() []string {
	names := make([]string, 0, r.sessions.Size())
	r.sessions.Range(func(_ uint64, res Resource) bool {
		names = append(names, res.Name())
		return true
	})
	slices.Sort(names)

	return names
}

// open opens name, retrying on *IOError. The lock is held only for each
// attempt. If all attempts fail, the last error is returned unchanged.
func (r *Registry) open(ctx context.Context, name string, cfg *Config) (uint64, Resource, error) {
	var lastErr error
	for attempt := 1; attempt <= cfg.openAttempts; attempt++ {
		if attempt > 1 {
			if err := pool.Sleep(ctx, cfg.retryDelay); err != nil {
				return 0, nil, err
			}
		}

		res, err := r.openOnce(ctx, name, cfg.attrs)
		if err == nil {
			id := r.nextID.Add(1)
			r.sessions.Store(id, res)

			return id, res, nil
		}

		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			return 0, nil, err
		}

		lastErr = err
		if attempt < cfg.openAttempts {
			cfg.logger.Warn("visa open failed, retrying", "resource", name, "attempt", attempt, "error", err)
		}
	}

	return 0, nil, lastErr
}

func (r *Registry) openOnce(ctx context.Context, name string, attrs Attributes) (Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	return r.manager.Open(ctx, name, attrs)
}

// release forgets a session and reports whether it was still registered. A
// session released by Close has already had its resource closed.
func (r *Registry) release(id uint64) bool {
	_, ok := r.sessions.LoadAndDelete(id)
	return ok
}

// Close closes every open session and the resource manager. A closed registry
// cannot open resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed.CompareAndSwap(false, true) {
		return ErrRegistryClosed
	}

	var errs []error
	r.sessions.Range(func(id uint64, _ Resource) bool {
		res, ok := r.sessions.LoadAndDelete(id)
		if !ok {
			return true
		}
		if err := res.Close(); err != nil {
			errs = append(errs, err)
		}

		return true
	})

	if err := r.manager.Close(); err != nil {
		errs = append(errs, err)
	}
	r.logger.Debug("visa registry closed")

	return errors.Join(errs...)
}
