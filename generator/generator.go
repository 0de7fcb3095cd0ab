// Package generator defines the pipeline-node contract of spec.md §4.3: a
// generator declares what it produces/consumes, its parallelism and
// input-delivery mode, and builds the task bodies the scheduler submits to
// a worker pool.
//
// Grounded on the teacher's pipeline.Step interface (In/Out/Run/Reset) and
// its optional-capability idiom (NamedStep, MarshallableStep,
// StepConfigurator checked via type assertion in
// pkg/core/pipeline/steps/source.go's NamedSourceReader). This package
// generalizes that: Base supplies sane defaults for every hook a given
// generator kind doesn't need, so a transform need only override
// DeliverInline, a source ExternalInput* and DeliverInline, and so on.
package generator

import (
	"github.com/itohio/flowsched/internal/chunk"
	"github.com/itohio/flowsched/internal/pool"
)

// Kind classifies a generator's role in the DAG (spec.md §3).
type Kind int

const (
	Transform Kind = iota
	Source
	Sink
)

// Delivery selects how a generator's declared inputs reach its task body
// (spec.md §3/§4.3).
type Delivery int

const (
	// Inline passes inputs directly as task-body arguments.
	Inline Delivery = iota
	// Staged hands inputs to ReceiveStaged on the scheduler goroutine
	// first; the task body runs with no input arguments.
	Staged
)

// Backend selects which worker pool runs a generator's tasks, or whether
// its output is yielded straight to the caller (spec.md §3 "submit_to").
type Backend int

const (
	CPU Backend = iota
	IO
	Caller
)

// Default priorities, per spec.md §3's convention.
const (
	PrioritySink      = 0
	PrioritySource    = 1
	PriorityTransform = 2
)

// Want is one (datatype, chunk index) pair a generator needs to produce
// its next output.
type Want struct {
	Datatype chunk.Datatype
	Index    chunk.Index
}

// Generator is the full scheduler-facing contract. Implementations embed
// Base and override only the hooks relevant to their kind.
type Generator interface {
	Produces() []chunk.Datatype
	Consumes() []chunk.Datatype
	Kind() Kind
	Parallel() bool
	InputDelivery() Delivery
	Priority() int
	Depth() int
	Backend() Backend
	HasFinalTask() bool

	NextChunkIndex() chunk.Index
	AdvanceChunkIndex() chunk.Index
	Wants() []Want
	SetWants(w []Want)
	BlockedUntilChunk() chunk.Index
	SetBlockedUntilChunk(chunk.Index)
	Finished() bool
	SetFinished(bool)

	// ExternalInputsExhausted reports, for a source, whether upstream
	// external data is done. Non-sources use the Base default (false).
	ExternalInputsExhausted() bool
	// ExternalInputReady reports, for a source, whether the next external
	// chunk is available yet. Non-sources use the Base default (true).
	ExternalInputReady() bool

	// DeliverInline builds the body for an inline-delivery task, given the
	// already-fetched inputs (empty for a source).
	DeliverInline(index chunk.Index, inputs chunk.Map) pool.Body
	// ReceiveStaged runs on the scheduler goroutine, updating internal
	// state and Wants(); only used when InputDelivery() == Staged.
	ReceiveStaged(index chunk.Index, inputs chunk.Map)
	// BuildStagedBody builds a staged task's body; it must be
	// self-contained; state was already absorbed by ReceiveStaged.
	BuildStagedBody(index chunk.Index) pool.Body
	// BuildFinalBody builds the distinguished flush task's body, used when
	// HasFinalTask() and inputs are exhausted.
	BuildFinalBody() pool.Body

	// RefreshWants updates Wants() after a task has been built for the
	// current chunk, computing the inputs needed for the next one.
	RefreshWants()
	// OnException performs best-effort cleanup after a fatal error.
	// Errors raised here are logged and swallowed (spec.md §7
	// CleanupFailure).
	OnException(err error)
}

// Base provides the mutable bookkeeping every Generator needs plus default
// hook bodies, mirroring spec.md §3's Generator fields.
type Base struct {
	produces []chunk.Datatype
	consumes []chunk.Datatype
	kind     Kind
	parallel bool
	delivery Delivery
	priority int
	depth    int
	backend  Backend
	final    bool

	nextChunkIndex    chunk.Index
	wants             []Want
	blockedUntilChunk chunk.Index
	finished          bool
}

// NewBase constructs a Base. It panics if parallel+Staged is requested,
// per spec.md §4.3 ("A parallel generator must use inline mode").
func NewBase(opts ...Option) *Base {
	b := &Base{
		blockedUntilChunk: chunk.NoIndex,
		priority:          PriorityTransform,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.parallel && b.delivery == Staged {
		panic("generator: cannot combine WithParallel and WithStagedDelivery")
	}
	return b
}

func (b *Base) Produces() []chunk.Datatype { return b.produces }
func (b *Base) Consumes() []chunk.Datatype { return b.consumes }
func (b *Base) Kind() Kind                 { return b.kind }
func (b *Base) Parallel() bool             { return b.parallel }
func (b *Base) InputDelivery() Delivery    { return b.delivery }
func (b *Base) Priority() int              { return b.priority }
func (b *Base) Depth() int                 { return b.depth }
func (b *Base) Backend() Backend           { return b.backend }
func (b *Base) HasFinalTask() bool         { return b.final }

func (b *Base) NextChunkIndex() chunk.Index { return b.nextChunkIndex }

func (b *Base) AdvanceChunkIndex() chunk.Index {
	idx := b.nextChunkIndex
	b.nextChunkIndex++
	return idx
}

func (b *Base) Wants() []Want          { return b.wants }
func (b *Base) SetWants(w []Want)      { b.wants = w }
func (b *Base) BlockedUntilChunk() chunk.Index {
	return b.blockedUntilChunk
}
func (b *Base) SetBlockedUntilChunk(i chunk.Index) { b.blockedUntilChunk = i }
func (b *Base) Finished() bool                     { return b.finished }
func (b *Base) SetFinished(f bool)                 { b.finished = f }

// ExternalInputsExhausted defaults to false: only meaningful for sources,
// which override it.
func (b *Base) ExternalInputsExhausted() bool { return false }

// ExternalInputReady defaults to true: only meaningful for sources.
func (b *Base) ExternalInputReady() bool { return true }

// RefreshWants implements the typical case (spec.md §4.3): advance each
// wanted input's chunk index by one. Generators with irregular input
// patterns (e.g. join-by-timestamp) override this.
func (b *Base) RefreshWants() {
	next := make([]Want, len(b.wants))
	for i, w := range b.wants {
		next[i] = Want{Datatype: w.Datatype, Index: w.Index + 1}
	}
	b.wants = next
}

// OnException is a no-op by default; generators with resources to release
// override it.
func (b *Base) OnException(err error) {}

// ReceiveStaged is a no-op by default; staged generators override it.
func (b *Base) ReceiveStaged(index chunk.Index, inputs chunk.Map) {}

// BuildStagedBody panics by default: a generator declaring Staged delivery
// must override this.
func (b *Base) BuildStagedBody(index chunk.Index) pool.Body {
	panic("generator: BuildStagedBody not implemented")
}

// BuildFinalBody panics by default: a generator declaring HasFinalTask
// must override this.
func (b *Base) BuildFinalBody() pool.Body {
	panic("generator: BuildFinalBody not implemented")
}

// DeliverInline panics by default: every source and every inline-delivery
// generator must override this, it is the one hook with no sensible default.
func (b *Base) DeliverInline(index chunk.Index, inputs chunk.Map) pool.Body {
	panic("generator: DeliverInline not implemented")
}
