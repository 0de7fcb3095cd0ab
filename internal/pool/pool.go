// Package pool implements the two worker-pool backends of spec.md §4.1: a
// cpu pool (isolated workers, for heavy bodies that should not contend with
// the scheduler goroutine) and an io pool (for blocking I/O). Go has no
// GIL, so "process isolation" is approximated rather than literal: a cpu
// pool body still runs as a goroutine, but the pool commits to never
// sharing mutable state between bodies, and sizes itself so that heavy
// bodies cannot starve the scheduler goroutine. The teacher's
// internal/concurrency.Submit idiom (a bare, unbounded fire-and-forget
// helper) is generalized here into a pool bounded by max_workers, since
// spec.md requires that bound and a bare "go func()" does not provide one.
package pool

import (
	"context"
	"sync"

	"github.com/itohio/flowsched/internal/chunk"
)

// Result is what a task body returns: the produced chunks, or an error.
type Result struct {
	Chunks chunk.Map
	Err    error
}

// Body is the work a pool runs. It receives a context so long bodies can
// observe cancellation during shutdown.
type Body func(ctx context.Context) (chunk.Map, error)

// Handle tracks one submitted Body.
type Handle interface {
	// Poll returns (result, true) once the body has finished, or
	// (Result{}, false) while still pending.
	Poll() (Result, bool)
	// Cancel best-effort cancels the body if it has not started running;
	// an already-running body is left to finish (spec.md §5 —
	// "best-effort; already-running tasks may finish").
	Cancel()
	// Done returns a channel closed when the body completes.
	Done() <-chan struct{}
}

// Pool is a bounded executor for task bodies.
type Pool interface {
	// Submit enqueues body and returns a handle for its completion.
	Submit(body Body) Handle
	// WaitAny blocks (bounded by ctx) until at least one of handles is
	// ready, then returns the subset that became ready.
	WaitAny(ctx context.Context, handles []Handle) []Handle
	// Shutdown waits for in-flight bodies to finish. Call only after every
	// outstanding handle has been drained or cancelled.
	Shutdown()
}

type handle struct {
	mu     sync.Mutex
	done   chan struct{}
	result Result
	cancel context.CancelFunc
}

func newHandle(cancel context.CancelFunc) *handle {
	return &handle{done: make(chan struct{}), cancel: cancel}
}

func (h *handle) finish(r Result) {
	h.mu.Lock()
	h.result = r
	h.mu.Unlock()
	close(h.done)
}

func (h *handle) Poll() (Result, bool) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, true
	default:
		return Result{}, false
	}
}

func (h *handle) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *handle) Done() <-chan struct{} {
	return h.done
}

// goroutinePool runs bodies on a bounded set of worker goroutines drained
// from a shared job channel — the Go analogue of a ProcessPoolExecutor /
// ThreadPoolExecutor pair, sized identically for both the cpu and io pools
// per spec.md §4.1 ("Both pools are bounded by max_workers").
type goroutinePool struct {
	jobs chan job
	wg   sync.WaitGroup
	quit chan struct{}
}

type job struct {
	ctx  context.Context
	body Body
	h    *handle
}

// New starts a pool with maxWorkers long-lived goroutines pulling from a
// shared job queue. Used for both the cpu and io backend; callers size
// and label them distinctly (see scheduler.New).
func New(maxWorkers int) Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	p := &goroutinePool{
		jobs: make(chan job),
		quit: make(chan struct{}),
	}
	for i := 0; i < maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *goroutinePool) worker() {
	defer p.wg.Done()
	for {
		select {
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(j)
		case <-p.quit:
			return
		}
	}
}

func (p *goroutinePool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			j.h.finish(Result{Err: panicToError(r)})
		}
	}()
	chunks, err := j.body(j.ctx)
	j.h.finish(Result{Chunks: chunks, Err: err})
}

func (p *goroutinePool) Submit(body Body) Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(cancel)
	j := job{ctx: ctx, body: body, h: h}
	go func() {
		select {
		case p.jobs <- j:
		case <-p.quit:
			h.finish(Result{Err: context.Canceled})
		case <-ctx.Done():
			h.finish(Result{Err: ctx.Err()})
		}
	}()
	return h
}

func (p *goroutinePool) WaitAny(ctx context.Context, handles []Handle) []Handle {
	if len(handles) == 0 {
		<-ctx.Done()
		return nil
	}
	// Block for the first completion (or ctx expiry), then collect every
	// handle that is ready by the time we wake — avoids waking once per
	// completion when several land together.
	woken := make(chan struct{}, 1)
	for _, h := range handles {
		go func(h Handle) {
			select {
			case <-h.Done():
				select {
				case woken <- struct{}{}:
				default:
				}
			case <-ctx.Done():
			}
		}(h)
	}
	select {
	case <-woken:
	case <-ctx.Done():
	}

	var ready []Handle
	for _, h := range handles {
		if _, ok := h.Poll(); ok {
			ready = append(ready, h)
		}
	}
	return ready
}

func (p *goroutinePool) Shutdown() {
	close(p.quit)
	p.wg.Wait()
}

type panicError struct{ v interface{} }

func (e panicError) Error() string { return "pool: task panicked" }

func panicToError(v interface{}) error {
	if err, ok := v.(error); ok {
		return err
	}
	return panicError{v: v}
}
