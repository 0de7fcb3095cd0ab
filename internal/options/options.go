// Package options implements the functional-options idiom used throughout
// the scheduler: every configurable type exposes a struct of defaults plus
// a set of With* constructors that mutate a pointer to that struct.
package options

// Option mutates a configuration struct in place. The concrete struct type
// is supplied by the caller; With* constructors type-assert it.
type Option func(cfg interface{})

// Apply runs every option against cfg, in order.
func Apply(cfg interface{}, opts ...Option) {
	for _, opt := range opts {
		opt(cfg)
	}
}
