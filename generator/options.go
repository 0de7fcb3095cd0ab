package generator

import "github.com/itohio/flowsched/internal/chunk"

// Option configures a Base at construction, in the teacher's functional
// -options idiom (x/options.Option), specialized to *Base since every field
// here is package-private bookkeeping rather than a generic interface{}.
type Option func(*Base)

func WithProduces(dtypes ...chunk.Datatype) Option {
	return func(b *Base) { b.produces = dtypes }
}

func WithConsumes(dtypes ...chunk.Datatype) Option {
	return func(b *Base) { b.consumes = dtypes }
}

func WithKind(k Kind) Option {
	return func(b *Base) { b.kind = k }
}

func WithParallel() Option {
	return func(b *Base) { b.parallel = true }
}

func WithStagedDelivery() Option {
	return func(b *Base) { b.delivery = Staged }
}

func WithPriority(p int) Option {
	return func(b *Base) { b.priority = p }
}

func WithDepth(d int) Option {
	return func(b *Base) { b.depth = d }
}

func WithBackend(p Backend) Option {
	return func(b *Base) { b.backend = p }
}

func WithFinalTask() Option {
	return func(b *Base) { b.final = true }
}

// WithInitialWants seeds Wants() — typically (dtype, 0) for every consumed
// datatype.
func WithInitialWants(wants ...Want) Option {
	return func(b *Base) { b.wants = wants }
}
