package render

import (
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent renderers; each mmdc or browser instance
	// holds a Chromium (~200MB).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// Pool hands out Backends, one per worker. Backends are created lazily on
// first acquire so that a single-diagram run starts one renderer only.
type Pool struct {
	size     int
	factory  func() Backend
	backends []Backend
	sem      chan Backend
	mu       sync.Mutex
	created  int
	closed   bool
}

// NewPool creates a pool with capacity for n backends built by factory.
func NewPool(n int, factory func() Backend) *Pool {
	if n < MinPoolSize {
		n = MinPoolSize
	}

	return &Pool{
		size:     n,
		factory:  factory,
		backends: make([]Backend, 0, n),
		sem:      make(chan Backend, n),
	}
}

// Acquire gets a backend from the pool, creating one if needed.
// Blocks if all backends are in use.
func (p *Pool) Acquire() Backend {
	select {
	case b := <-p.sem:
		return b
	default:
	}

	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		b := p.factory()

		p.mu.Lock()
		p.backends = append(p.backends, b)
		p.mu.Unlock()

		return b
	}
	p.mu.Unlock()

	return <-p.sem
}

// Release returns a backend to the pool.
func (p *Pool) Release(b Backend) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.sem <- b
	}
}

// Close closes every backend the pool created.
// Returns an aggregated error if several backends fail to close.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	backends := p.backends
	p.mu.Unlock()

	var errs []error
	for _, b := range backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return p.size
}

// ResolvePoolSize determines the worker count.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
