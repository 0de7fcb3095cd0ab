package main

import (
	"context"

	"github.com/itohio/flowsched/generator"
	"github.com/itohio/flowsched/internal/chunk"
	"github.com/itohio/flowsched/internal/pool"
)

// valueSource emits one chunk per entry of a fixed in-memory slice. It's
// the demo's stand-in for a real external source (a sensor feed, a socket,
// a NATS subject — see examples/netsource and examples/natsource).
type valueSource struct {
	*generator.Base
	out    chunk.Datatype
	values []float32
	pos    int
}

func newValueSource(out chunk.Datatype, values []float32) *valueSource {
	return &valueSource{
		Base: generator.NewBase(
			generator.WithProduces(out),
			generator.WithKind(generator.Source),
			generator.WithPriority(generator.PrioritySource),
		),
		out:    out,
		values: values,
	}
}

func (s *valueSource) ExternalInputReady() bool { return true }

func (s *valueSource) ExternalInputsExhausted() bool { return s.pos >= len(s.values) }

func (s *valueSource) DeliverInline(_ chunk.Index, _ chunk.Map) pool.Body {
	v := s.values[s.pos]
	s.pos++
	out := s.out
	return func(ctx context.Context) (chunk.Map, error) {
		return chunk.Map{out: chunk.Of(v)}, nil
	}
}
