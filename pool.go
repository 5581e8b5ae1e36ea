package pdfsandbox

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one browser is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// enginePool hands out engines, one render at a time each.
// Engines are created lazily on first acquire to avoid startup delay.
type enginePool struct {
	size    int
	factory func() engine
	sem     chan engine
	done    chan struct{}
	mu      sync.Mutex
	created int
	closed  bool
}

// newEnginePool creates a pool with capacity for n engines.
func newEnginePool(n int, factory func() engine) *enginePool {
	if n < 1 {
		n = 1
	}

	return &enginePool{
		size:    n,
		factory: factory,
		sem:     make(chan engine, n),
		done:    make(chan struct{}),
	}
}

// acquire gets an engine from the pool, creating one if needed.
// Blocks until an engine is released, ctx is done, or the pool closes.
func (p *enginePool) acquire(ctx context.Context) (engine, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrRendererClosed
	}

	// Prefer an idle engine (non-blocking)
	select {
	case eng := <-p.sem:
		p.mu.Unlock()
		return eng, nil
	default:
	}

	if p.created < p.size {
		p.created++
		p.mu.Unlock()
		return p.factory(), nil
	}
	p.mu.Unlock()

	// All engines created, wait for one to be released
	select {
	case eng := <-p.sem:
		return eng, nil
	case <-p.done:
		return nil, ErrRendererClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns an engine to the pool. After close, the engine is
// closed instead. The channel has room for every engine, so the send
// never blocks.
func (p *enginePool) release(eng engine) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return eng.Close()
	}
	p.sem <- eng
	p.mu.Unlock()
	return nil
}

// close shuts down idle engines; busy ones are closed when released.
// Returns an aggregated error if multiple engines fail to close.
func (p *enginePool) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)

	var idle []engine
drain:
	for {
		select {
		case eng := <-p.sem:
			idle = append(idle, eng)
		default:
			break drain
		}
	}
	p.mu.Unlock()

	var errs []error
	for _, eng := range idle {
		if err := eng.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *enginePool) Size() int {
	return p.size
}

// ResolvePoolSize determines the number of browser instances.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
