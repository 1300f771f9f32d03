package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

type Job func()

// Stats is a snapshot of pool counters.
type Stats struct {
	Capacity  int           `json:"capacity"`
	Running   int           `json:"running"`
	Free      int           `json:"free"`
	Submitted uint64        `json:"submitted"`
	Completed uint64        `json:"completed"`
	Panics    uint64        `json:"panics"`
	LastDur   time.Duration `json:"last_duration"`
	LastAt    time.Time     `json:"last_finished_at"`
}

// Pool wraps an ants pool with job accounting and panic recovery.
type Pool struct {
	pool *ants.Pool
	log  zerolog.Logger

	mu    sync.Mutex
	stats Stats
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	nonblocking bool
	log         zerolog.Logger
}

// WithNonblocking makes Submit fail instead of waiting when the pool is full.
func WithNonblocking() Option { return func(o *options) { o.nonblocking = true } }

// WithLogger sets the logger used for recovered panics.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// New creates a pool with the given number of workers.
func New(size int, opts ...Option) (*Pool, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if size <= 0 {
		size = 4
	}
	p, err := ants.NewPool(size, ants.WithNonblocking(o.nonblocking))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{pool: p, log: o.log}, nil
}

// Submit enqueues a job for asynchronous execution.
func (p *Pool) Submit(j Job) error {
	p.mu.Lock()
	p.stats.Submitted++
	p.mu.Unlock()
	err := p.pool.Submit(func() {
		start := time.Now()
		defer func() {
			r := recover()
			p.mu.Lock()
			if r != nil {
				p.stats.Panics++
			}
			p.stats.Completed++
			p.stats.LastDur = time.Since(start)
			p.stats.LastAt = time.Now()
			p.mu.Unlock()
			if r != nil {
				p.log.Error().Interface("panic", r).Msg("worker panic recovered")
			}
		}()
		j()
	})
	if err != nil {
		p.mu.Lock()
		p.stats.Submitted--
		p.mu.Unlock()
		return fmt.Errorf("submit job: %w", err)
	}
	return nil
}

// Stats returns a copy of the current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Capacity = p.pool.Cap()
	s.Running = p.pool.Running()
	s.Free = p.pool.Free()
	return s
}

// Release stops the pool. Submitting afterwards returns an error.
func (p *Pool) Release() {
	p.pool.Release()
}
