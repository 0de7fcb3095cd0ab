package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/itohio/flowsched/internal/chunk"
	"github.com/itohio/flowsched/internal/chunkstore"
	"github.com/itohio/flowsched/internal/logger"
	"github.com/itohio/flowsched/internal/pool"
	"github.com/itohio/flowsched/generator"
)

// pickTask runs one pass of spec.md §4.4's admission steps 2-4. It returns
// exactly one of: a task to submit to a pool, an emission to yield
// straight to the caller (a sink/caller-backend task, executed inline),
// or (nil, nil, nil) meaning nothing is runnable right now and the caller
// should wait on pending completions.
//
// The external-wait sleep (step 4) loops here instead of recursing, per
// DESIGN.md's correction of the source's recursive restart defect.
func (s *Scheduler) pickTask(ctx context.Context) (*admittedTask, *Emission, error) {
	for {
		var externalWaits []generator.Generator
		var sources []generator.Generator
		requests := make(map[chunk.Datatype]int)

		for _, g := range s.generators {
			gid := s.ids[g]

			if g.Finished() {
				continue
			}

			if g.Kind() == generator.Source {
				if !g.ExternalInputReady() {
					externalWaits = append(externalWaits, g)
					continue
				}
				if g.ExternalInputsExhausted() {
					// A source with no further external input and no
					// pending wants of its own is done for good.
					g.SetFinished(true)
					continue
				}
			}

			if !g.Parallel() && len(g.Produces()) > 0 {
				store := s.stores.Store(g.Produces()[0])
				if store.Contiguous() < g.BlockedUntilChunk() {
					continue
				}
			}

			if g.Kind() == generator.Source {
				sources = append(sources, g)
				continue
			}

			if s.inputsExhausted(g) {
				if g.HasFinalTask() {
					if !s.hasPendingFinal(gid) {
						task := s.buildFinalTask(g, gid)
						if task.backend == generator.Caller {
							emission, err := s.runInline(g, task)
							return nil, emission, err
						}
						return task, nil, nil
					}
					continue
				}
				g.SetFinished(true)
				continue
			}

			missing := false
			for _, w := range g.Wants() {
				store := s.stores.Store(w.Datatype)
				if store == nil {
					return nil, nil, topologyErrorf("generator wants unregistered datatype %q", w.Datatype)
				}
				if !store.Has(w.Index) {
					requests[w.Datatype]++
					missing = true
				}
			}
			if missing {
				continue
			}

			inputs := make(chunk.Map, len(g.Wants()))
			for _, w := range g.Wants() {
				store := s.stores.Store(w.Datatype)
				inputs[w.Datatype] = store.Get(w.Index)
				store.MarkSeen(gid, w.Index)
			}
			if err := s.stores.GC(); err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrTopology, err)
			}

			task := s.buildTask(g, gid, inputs)
			if task.backend == generator.Caller {
				emission, err := s.runInline(g, task)
				return nil, emission, err
			}
			return task, nil, nil
		}

		if len(sources) > 0 {
			rss, err := s.cfg.rssProbe()
			if err == nil && rss > uint64(s.cfg.memoryThresholdMB)*1e6 && len(s.pending) > 0 {
				return nil, nil, nil
			}
			chosen := s.chooseSource(sources, requests)
			gid := s.ids[chosen]
			task := s.buildSourceTask(chosen, gid)
			if task.backend == generator.Caller {
				emission, err := s.runInline(chosen, task)
				return nil, emission, err
			}
			return task, nil, nil
		}

		if len(externalWaits) > 0 {
			if len(s.pending) > 0 {
				return nil, nil, nil
			}
			logger.Log.Debug().Msg("scheduler: waiting on external condition")
			select {
			case <-time.After(s.cfg.sleepInterval):
				continue
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}

		return nil, nil, nil
	}
}

// inputsExhausted reports whether every datatype g consumes will never
// produce another chunk g hasn't already seen. Corrected per spec.md §9:
// the original source summed every generator's produced datatypes as if
// all were exhausted; here each consumed datatype is checked against its
// actual producer's exhaustion state and the consumer's own frontier.
func (s *Scheduler) inputsExhausted(g generator.Generator) bool {
	if len(g.Consumes()) == 0 {
		return false
	}
	for _, dt := range g.Consumes() {
		if !s.datatypeExhaustedFor(g, dt) {
			return false
		}
	}
	return true
}

func (s *Scheduler) datatypeExhaustedFor(g generator.Generator, dt chunk.Datatype) bool {
	producerID, ok := s.producerOf[dt]
	if !ok {
		return false
	}
	producer := s.generators[producerID]

	var producerDone bool
	if producer.Kind() == generator.Source {
		producerDone = producer.ExternalInputsExhausted()
	} else {
		producerDone = producer.Finished()
	}
	if !producerDone {
		return false
	}
	// A producer that is done admitting tasks may still have one in
	// flight; its chunk has not landed yet.
	for _, pt := range s.pending {
		if pt.genID == producerID {
			return false
		}
	}

	store := s.stores.Store(dt)
	want := wantIndex(g, dt)
	return !store.Has(want)
}

func (s *Scheduler) hasPendingFinal(gid chunkstore.GeneratorID) bool {
	for _, pt := range s.pending {
		if pt.genID == gid && pt.isFinal {
			return true
		}
	}
	return false
}

func wantIndex(g generator.Generator, dt chunk.Datatype) chunk.Index {
	for _, w := range g.Wants() {
		if w.Datatype == dt {
			return w.Index
		}
	}
	return 0
}

// chooseSource scores each source by total outstanding requests across its
// produced datatypes, breaking ties with jitter (spec.md §4.4 step 3). The
// jitter only affects which source runs first among ties, never which
// chunks are ultimately emitted (spec.md §8).
func (s *Scheduler) chooseSource(sources []generator.Generator, requests map[chunk.Datatype]int) generator.Generator {
	var best generator.Generator
	bestScore := -1.0
	for _, g := range sources {
		score := 0
		for _, dt := range g.Produces() {
			score += requests[dt]
		}
		total := float64(score) + s.rng.Float64()
		if total > bestScore {
			bestScore = total
			best = g
		}
	}
	return best
}

func (s *Scheduler) buildTask(g generator.Generator, gid chunkstore.GeneratorID, inputs chunk.Map) *admittedTask {
	idx := g.AdvanceChunkIndex()
	var body pool.Body
	if g.InputDelivery() == generator.Staged {
		g.ReceiveStaged(idx, inputs)
		body = g.BuildStagedBody(idx)
	} else {
		body = g.DeliverInline(idx, inputs)
	}
	if !g.Parallel() {
		g.SetBlockedUntilChunk(idx)
	}
	g.RefreshWants()
	return &admittedTask{genID: gid, chunk: idx, produces: g.Produces(), backend: g.Backend(), body: body}
}

func (s *Scheduler) buildSourceTask(g generator.Generator, gid chunkstore.GeneratorID) *admittedTask {
	idx := g.AdvanceChunkIndex()
	body := g.DeliverInline(idx, nil)
	if !g.Parallel() {
		g.SetBlockedUntilChunk(idx)
	}
	g.RefreshWants()
	return &admittedTask{genID: gid, chunk: idx, produces: g.Produces(), backend: g.Backend(), body: body}
}

func (s *Scheduler) buildFinalTask(g generator.Generator, gid chunkstore.GeneratorID) *admittedTask {
	body := g.BuildFinalBody()
	return &admittedTask{genID: gid, chunk: g.NextChunkIndex(), isFinal: true, produces: g.Produces(), backend: g.Backend(), body: body}
}

// sinkPayloadKey is the conventional map key a Caller-backend task body
// uses to carry the single value to yield to the output stream (sinks
// declare Produces() empty, per spec.md §3, so their result isn't keyed by
// a real datatype).
const sinkPayloadKey chunk.Datatype = ""

// runInline executes a Caller-backend task's body on the scheduler
// goroutine itself and turns its result into an Emission, instead of
// submitting it to a pool (spec.md §4.5).
func (s *Scheduler) runInline(g generator.Generator, t *admittedTask) (*Emission, error) {
	result, err := t.body(context.Background())
	if t.isFinal {
		g.SetFinished(true)
	}
	if err != nil {
		return nil, &TaskFailureError{Datatypes: t.produces, Chunk: t.chunk, Cause: err}
	}
	payload := result[sinkPayloadKey]
	return &Emission{Payload: payload}, nil
}
