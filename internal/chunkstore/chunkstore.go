// Package chunkstore implements the per-datatype chunk buffer of spec.md
// §4.2: a sparse map of arrived chunks, the contiguous-arrival frontier,
// per-consumer read frontiers, and reference-counted garbage collection.
//
// Grounded on the teacher's channel-ownership discipline (pkg/core/pipeline
// steps own their channel and never let two goroutines write it) and on
// StoredData from _examples/original_source/plarx/scheduler.py, corrected
// per spec.md §9: GC compares against min(seen_by.values()), not against a
// membership test on the store itself.
package chunkstore

import (
	"errors"
	"fmt"

	"github.com/itohio/flowsched/internal/chunk"
)

// GeneratorID is an index into the scheduler's flat generator list (tasks
// and stores refer to generators by index, never by pointer, so the
// scheduler goroutine stays the sole mutator).
type GeneratorID int

// ErrDeadOutput is returned by GC when a datatype has no registered
// consumers — spec.md §7 TopologyError, "a produced datatype has no
// registered consumers".
var ErrDeadOutput = errors.New("chunkstore: datatype has no registered consumers")

// Store buffers one datatype's chunks. All mutation happens on the
// scheduler goroutine; Store has no internal locking by design (spec.md §5).
type Store struct {
	Datatype chunk.Datatype

	produced           map[chunk.Index]chunk.Payload
	contiguousFrontier chunk.Index
	seenBy             map[GeneratorID]chunk.Index
	sourceExhausted    bool
}

// New creates a Store for dtype, registering consumers at their initial
// frontier of chunk.NoIndex. Consumers must be registered here and only
// here (spec.md §3 — "A consumer must be registered at startup if and only
// if its declared inputs include this datatype").
func New(dtype chunk.Datatype, consumers []GeneratorID) *Store {
	seenBy := make(map[GeneratorID]chunk.Index, len(consumers))
	for _, c := range consumers {
		seenBy[c] = chunk.NoIndex
	}
	return &Store{
		Datatype:           dtype,
		produced:           make(map[chunk.Index]chunk.Payload),
		contiguousFrontier: chunk.NoIndex,
		seenBy:             seenBy,
	}
}

// Put inserts a chunk and advances the contiguous frontier as far as the
// new arrival allows.
func (s *Store) Put(index chunk.Index, payload chunk.Payload) {
	s.produced[index] = payload
	for s.has(s.contiguousFrontier + 1) {
		s.contiguousFrontier++
	}
}

// Get returns the chunk at index, which must exist (spec.md §4.2 — "get:
// required to exist"). Callers check Has first when existence is in
// question.
func (s *Store) Get(index chunk.Index) chunk.Payload {
	p, ok := s.produced[index]
	if !ok {
		panic(fmt.Sprintf("chunkstore: chunk %s:%d not present", s.Datatype, index))
	}
	return p
}

// Has reports whether index has arrived.
func (s *Store) Has(index chunk.Index) bool {
	return s.has(index)
}

func (s *Store) has(index chunk.Index) bool {
	_, ok := s.produced[index]
	return ok
}

// Contiguous returns the greatest k such that chunks 0..=k have all
// arrived, or chunk.NoIndex if none has.
func (s *Store) Contiguous() chunk.Index {
	return s.contiguousFrontier
}

// MarkSeen raises consumer's read frontier to index. index must not be
// less than the consumer's current frontier (spec.md §3 invariant —
// "seen_by[c] never decreases").
func (s *Store) MarkSeen(consumer GeneratorID, index chunk.Index) {
	if cur, ok := s.seenBy[consumer]; ok && index > cur {
		s.seenBy[consumer] = index
	} else if !ok {
		s.seenBy[consumer] = index
	}
}

// Seen returns consumer's current read frontier.
func (s *Store) Seen(consumer GeneratorID) chunk.Index {
	return s.seenBy[consumer]
}

// SourceExhausted reports whether the producing generator has announced
// that no further chunks of this datatype will appear.
func (s *Store) SourceExhausted() bool { return s.sourceExhausted }

// SetSourceExhausted marks the datatype as exhausted.
func (s *Store) SetSourceExhausted() { s.sourceExhausted = true }

// minSeen returns the smallest consumer frontier, or chunk.NoIndex if the
// datatype has no consumers at all.
func (s *Store) minSeen() (chunk.Index, bool) {
	if len(s.seenBy) == 0 {
		return chunk.NoIndex, false
	}
	min := chunk.Index(1<<63 - 1)
	for _, v := range s.seenBy {
		if v < min {
			min = v
		}
	}
	return min, true
}

// gc drops every entry at or below the minimum consumer frontier. Returns
// ErrDeadOutput if the datatype has no registered consumers (ambient
// invariant: every produced datatype must be consumed by someone, even if
// only a sink that discards it).
func (s *Store) gc() error {
	min, ok := s.minSeen()
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeadOutput, s.Datatype)
	}
	for idx := range s.produced {
		if idx <= min {
			delete(s.produced, idx)
		}
	}
	return nil
}

// Empty reports whether every produced chunk has been consumed — used by
// the scheduler's terminal condition (spec.md §4.4 — "every chunk store
// fully drained by its consumers").
func (s *Store) Empty() bool {
	return len(s.produced) == 0
}
