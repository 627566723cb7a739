// Package dispatch runs catalog calls off the caller's goroutine.
//
// Work goes into a fixed pool of workers and comes back as a Future, which the
// caller can wait on, select on, or attach a completion callback to.
package dispatch

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

var ErrPoolClosed = errors.New("dispatch pool is closed")

type Config struct {
	Workers   int
	QueueSize int
}

func DefaultConfig() Config {
	return Config{Workers: 4, QueueSize: 64}
}

type job struct {
	id  string
	run func(ctx context.Context)
}

// Pool is a fixed set of workers fed from a bounded queue.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan job, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	log.Printf("[DISPATCH] Started %d workers", cfg.Workers)
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.run(p.ctx)
	}
}

func (p *Pool) enqueue(j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.jobs <- j
	return nil
}

// Close stops accepting work and waits for queued jobs to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	log.Printf("[DISPATCH] Pool stopped")
}

// Submit queues fn on the pool. If the pool is closed the returned future is
// already completed with ErrPoolClosed. A panic in fn completes the future with an error.
func Submit[T any](p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T](uuid.NewString())

	err := p.enqueue(job{id: f.id, run: func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[DISPATCH] Job %s panicked: %v", f.id, r)
				var zero T
				f.complete(zero, &PanicError{Value: r})
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			log.Printf("[DISPATCH] Job %s failed: %v", f.id, err)
		}
		f.complete(v, err)
	}})
	if err != nil {
		var zero T
		f.complete(zero, err)
	}
	return f
}
