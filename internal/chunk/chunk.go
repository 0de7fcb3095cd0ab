// Package chunk defines the payload type that flows between generators.
//
// A chunk is immutable once produced: the Chunk Store holds the canonical
// reference and task bodies only ever read it, mirroring the teacher's
// store.Store convention of treating a produced value as owned by whoever
// holds the canonical map entry (see pkg/store.Store.Clone in the teacher,
// generalized here to "don't clone at all, just don't mutate").
package chunk

import "gorgonia.org/tensor"

// Datatype names one stream of chunks flowing between generators. It is
// global across the pipeline: exactly one generator produces a given
// Datatype (spec.md §3).
type Datatype string

// Index is a chunk's position within its datatype's stream. Indices start
// at 0 and increase monotonically per datatype.
type Index int64

// NoIndex marks "no chunk yet" — the initial value of a consumer frontier
// and of blockedUntilChunk before any task has been admitted.
const NoIndex Index = -1

// Payload is the opaque array-or-record data spec.md §3 describes. The
// scheduler never inspects Value; it only moves it between a task's result
// map and the Chunk Store. Generators are free to store anything, but the
// common case in this module is a numeric array, so Payload carries a
// convenience accessor for gorgonia tensors alongside the generic value.
type Payload struct {
	Value interface{}
}

// Of wraps an arbitrary value as a chunk payload.
func Of(v interface{}) Payload {
	return Payload{Value: v}
}

// OfTensor wraps a gorgonia tensor as a chunk payload. Used by generators
// that exchange numeric arrays (the default domain data this scheduler was
// built to stream).
func OfTensor(t tensor.Tensor) Payload {
	return Payload{Value: t}
}

// Tensor returns the payload's value as a gorgonia tensor, and whether the
// assertion succeeded.
func (p Payload) Tensor() (tensor.Tensor, bool) {
	t, ok := p.Value.(tensor.Tensor)
	return t, ok
}

// Map is the result shape every task body produces: one payload per
// declared output datatype (spec.md §6 — "key set equals the generator's
// declared produces").
type Map map[Datatype]Payload
