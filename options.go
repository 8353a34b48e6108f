package groupsort

import (
	"github.com/davidvella/groupsort/ordering"
	"github.com/davidvella/groupsort/partition"
)

// options defines the configuration of a GroupSort construction.
type options[K, V any] struct {
	valueOrdering ordering.Ordering[V]
	partitioner   partition.Partitioner[K]
	combiner      func(V, V) V
}

// Option is a function that configures a GroupSort construction.
type Option[K, V any] func(*options[K, V])

// WithValueOrdering declares a total order over values, applied as a
// secondary sort key within each key group.
func WithValueOrdering[K, V any](ord ordering.Ordering[V]) Option[K, V] {
	return func(o *options[K, V]) {
		o.valueOrdering = ord
	}
}

// WithPartitioner sets the partitioner pairs are routed with. The default
// hashes the fmt representation of the key.
func WithPartitioner[K, V any](p partition.Partitioner[K]) Option[K, V] {
	return func(o *options[K, V]) {
		o.partitioner = p
	}
}

// WithCombiner enables map-side pre-aggregation: same-key values within each
// source partition are folded together with f before the shuffle. f must be
// associative; see GroupSort for the commutativity caveat.
func WithCombiner[K, V any](f func(V, V) V) Option[K, V] {
	return func(o *options[K, V]) {
		o.combiner = f
	}
}

func defaultOptions[K, V any]() options[K, V] {
	return options[K, V]{
		partitioner: partition.Default[K](),
	}
}
