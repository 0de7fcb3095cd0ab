// Package scheduler implements the admission loop of spec.md §4.4: it
// owns the generator list and chunk stores, submits tasks to worker pools,
// drains completions, enforces memory-pressure source throttling, and
// streams the sink's emissions back to the caller.
//
// Grounded on _examples/original_source/plarx/scheduler.py's Scheduler,
// corrected per spec.md §9: no recursive external-wait restart, a real
// min(seen_by.values()) GC comparison, a single canonical "finished" flag,
// and an exhausted-inputs check that only considers a datatype done for a
// consumer once its actual producer has declared so, has no task still in
// flight, and that consumer has drained it.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/itohio/flowsched/internal/chunk"
	"github.com/itohio/flowsched/internal/chunkstore"
	"github.com/itohio/flowsched/internal/logger"
	"github.com/itohio/flowsched/internal/pool"
	"github.com/itohio/flowsched/generator"
)

// Emission is one value yielded by the scheduler's output stream: either a
// payload produced by the sink, or a terminal error (spec.md §4.5, §7).
type Emission struct {
	Payload chunk.Payload
	Err     error
}

// Scheduler drives the admission loop described in spec.md §4.4.
type Scheduler struct {
	cfg        config
	generators []generator.Generator
	ids        map[generator.Generator]chunkstore.GeneratorID
	producerOf map[chunk.Datatype]chunkstore.GeneratorID
	stores     *chunkstore.Manager

	cpuPool pool.Pool
	ioPool  pool.Pool

	pending []*pendingTask
	rng     *rand.Rand
}

type pendingTask struct {
	genID    chunkstore.GeneratorID
	chunk    chunk.Index
	isFinal  bool
	produces []chunk.Datatype
	handle   pool.Handle
}

type admittedTask struct {
	genID    chunkstore.GeneratorID
	chunk    chunk.Index
	isFinal  bool
	produces []chunk.Datatype
	backend  generator.Backend
	body     pool.Body
}

// New validates the generator topology, sorts generators by
// (priority, depth), creates one Chunk Store per produced datatype, and
// starts both worker pools. See spec.md §4.4 and §6.
func New(generators []generator.Generator, opts ...Option) (*Scheduler, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rssProbe == nil {
		cfg.rssProbe = defaultRSSProbe
	}

	sorted := make([]generator.Generator, len(generators))
	copy(sorted, generators)
	sort.SliceStable(sorted, func(i, j int) bool {
		gi, gj := sorted[i], sorted[j]
		if gi.Priority() != gj.Priority() {
			return gi.Priority() < gj.Priority()
		}
		return gi.Depth() < gj.Depth()
	})

	ids := make(map[generator.Generator]chunkstore.GeneratorID, len(sorted))
	for i, g := range sorted {
		ids[g] = chunkstore.GeneratorID(i)
	}

	producerOf := make(map[chunk.Datatype]chunkstore.GeneratorID)
	var producedDatatypes []chunk.Datatype
	for _, g := range sorted {
		gid := ids[g]
		for _, dt := range g.Produces() {
			if _, exists := producerOf[dt]; exists {
				return nil, topologyErrorf("datatype %q produced by more than one generator", dt)
			}
			producerOf[dt] = gid
			producedDatatypes = append(producedDatatypes, dt)
		}
	}

	consumersOf := make(map[chunk.Datatype][]chunkstore.GeneratorID)
	for _, g := range sorted {
		gid := ids[g]
		for _, dt := range g.Consumes() {
			if _, ok := producerOf[dt]; !ok {
				return nil, topologyErrorf("generator consumes unregistered datatype %q", dt)
			}
			consumersOf[dt] = append(consumersOf[dt], gid)
		}
	}

	stores := chunkstore.NewManager(producedDatatypes, func(dt chunk.Datatype) []chunkstore.GeneratorID {
		return consumersOf[dt]
	})

	return &Scheduler{
		cfg:        cfg,
		generators: sorted,
		ids:        ids,
		producerOf: producerOf,
		stores:     stores,
		cpuPool:    pool.New(cfg.maxWorkers),
		ioPool:     pool.New(cfg.maxWorkers),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run starts the admission loop and returns the lazy output stream
// described in spec.md §4.5: finite, not restartable, not thread-safe. The
// channel closes after the final emission (or terminal error).
func (s *Scheduler) Run(ctx context.Context) <-chan Emission {
	out := make(chan Emission)
	go s.loop(ctx, out)
	return out
}

func (s *Scheduler) loop(ctx context.Context, out chan<- Emission) {
	defer close(out)

	for {
		if err := s.drainCompletions(); err != nil {
			s.shutdown(err, out)
			return
		}

		task, emission, err := s.pickTask(ctx)
		if err != nil {
			s.shutdown(err, out)
			return
		}

		if emission != nil {
			select {
			case out <- *emission:
			case <-ctx.Done():
				s.shutdown(ctx.Err(), out)
				return
			}
			continue
		}

		if task != nil {
			s.submit(task)
			if len(s.pending) < s.cfg.maxWorkers {
				continue
			}
		} else if len(s.pending) == 0 {
			if s.allExhausted() {
				s.cpuPool.Shutdown()
				s.ioPool.Shutdown()
				return
			}
			s.shutdown(ErrInvariantViolation, out)
			return
		}

		s.waitPending(ctx)
	}
}

// allExhausted is the terminal condition of spec.md §4.4: every generator
// finished and every Chunk Store fully drained.
func (s *Scheduler) allExhausted() bool {
	for _, g := range s.generators {
		if !g.Finished() {
			return false
		}
	}
	return s.stores.AllEmpty()
}

func (s *Scheduler) drainCompletions() error {
	still := s.pending[:0:0]
	for i, pt := range s.pending {
		res, ok := pt.handle.Poll()
		if !ok {
			still = append(still, pt)
			continue
		}
		gen := s.generators[pt.genID]
		if pt.isFinal {
			// Mark finished before the error check so a failing flush is
			// never retried (spec.md §4.4).
			gen.SetFinished(true)
		}
		if res.Err != nil {
			s.pending = append(still, s.pending[i+1:]...)
			return &TaskFailureError{Datatypes: pt.produces, Chunk: pt.chunk, Cause: res.Err}
		}
		for dt, payload := range res.Chunks {
			store := s.stores.Store(dt)
			if store == nil {
				continue
			}
			store.Put(pt.chunk, payload)
		}
	}
	s.pending = still
	return nil
}

func (s *Scheduler) waitPending(ctx context.Context) {
	if len(s.pending) == 0 {
		return
	}
	handles := make([]pool.Handle, len(s.pending))
	for i, pt := range s.pending {
		handles[i] = pt.handle
	}
	wctx, cancel := context.WithTimeout(ctx, s.cfg.waitTimeout)
	defer cancel()
	// Either pool's WaitAny works here: it only waits on the handles
	// passed in, regardless of which pool created them.
	ready := s.cpuPool.WaitAny(wctx, handles)
	if len(ready) == 0 {
		logger.Log.Debug().Msg("scheduler: waiting for a pending task to complete")
	}
}

func (s *Scheduler) submit(t *admittedTask) {
	p := s.cpuPool
	if t.backend == generator.IO {
		p = s.ioPool
	}
	h := p.Submit(t.body)
	s.pending = append(s.pending, &pendingTask{
		genID:    t.genID,
		chunk:    t.chunk,
		isFinal:  t.isFinal,
		produces: t.produces,
		handle:   h,
	})
}

// shutdown performs the cancellation sequence of spec.md §5/§7: cancel
// every pending handle, call OnException on every unfinished generator
// (swallowing secondary errors), shut down both pools, then surface the
// original error.
func (s *Scheduler) shutdown(cause error, out chan<- Emission) {
	for _, pt := range s.pending {
		pt.handle.Cancel()
	}
	for _, g := range s.generators {
		if g.Finished() {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Log.Error().Msg(fmt.Sprintf("scheduler: cleanup panicked: %v", r))
				}
			}()
			g.OnException(cause)
		}()
	}
	s.cpuPool.Shutdown()
	s.ioPool.Shutdown()
	out <- Emission{Err: cause}
}
