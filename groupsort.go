package groupsort

import (
	"errors"
	"fmt"
	"iter"

	"github.com/google/btree"

	"github.com/davidvella/groupsort/engine"
	"github.com/davidvella/groupsort/ordering"
	"github.com/davidvella/groupsort/partition"
)

// Common errors returned by construction and validation.
var (
	ErrNumPartitions  = errors.New("groupsort: number of partitions must be at least 1")
	ErrNoKeyOrdering  = errors.New("groupsort: key ordering is required")
	ErrNoPartitioner  = errors.New("groupsort: partitioner is required")
	ErrPartitionCount = errors.New("groupsort: declared and physical partition counts differ")
	ErrWrongPartition = errors.New("groupsort: pair resides in the wrong partition")
	ErrOutOfOrder     = errors.New("groupsort: pairs out of order within a partition")
)

// GroupSorted is an immutable, partitioned collection of key-value pairs in
// which all pairs sharing a key are contiguous within one partition and each
// partition is sorted by key, then by the declared value ordering if any.
// Instances are created by GroupSort, Wrap, or an operator defined to
// preserve the invariant; they are never mutated.
type GroupSorted[K, V any] struct {
	data          engine.Dataset[partition.Pair[K, V]]
	partitioner   partition.Partitioner[K]
	numPartitions int
	keyOrdering   ordering.Ordering[K]
	valueOrdering ordering.Ordering[V]
}

// GroupSort builds a GroupSorted from raw pairs. Every pair is routed to the
// partition chosen by the partitioner and each destination partition is
// sorted by key, then by the value ordering if one is declared. That shuffle
// is the only point where data moves between partitions, delegated to sh.
//
// When a combiner is supplied, pairs are pre-combined per key within each
// source partition before redistribution. The local combining order is
// unspecified, so the combiner must be associative; if it is not also
// commutative, results remain order-dependent across runs.
//
// Distinct keys that compare equal under the key ordering break the
// contiguity invariant; behavior under such collisions is undefined.
func GroupSort[K, V any](
	sh engine.Shuffler[partition.Pair[K, V]],
	pairs engine.Dataset[partition.Pair[K, V]],
	numPartitions int,
	keyOrdering ordering.Ordering[K],
	opts ...Option[K, V],
) (*GroupSorted[K, V], error) {
	if numPartitions < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNumPartitions, numPartitions)
	}
	if keyOrdering == nil {
		return nil, ErrNoKeyOrdering
	}

	o := defaultOptions[K, V]()
	for _, opt := range opts {
		opt(&o)
	}

	if o.combiner != nil {
		pairs = combinePartitions(pairs, keyOrdering, o.combiner)
	}

	data, err := sh.Distribute(
		pairs,
		numPartitions,
		func(p partition.Pair[K, V]) int { return o.partitioner.Partition(p.Key, numPartitions) },
		comparePairs(keyOrdering, o.valueOrdering),
	)
	if err != nil {
		return nil, fmt.Errorf("groupsort: failed to distribute pairs: %w", err)
	}

	return &GroupSorted[K, V]{
		data:          data,
		partitioner:   o.partitioner,
		numPartitions: numPartitions,
		keyOrdering:   keyOrdering,
		valueOrdering: o.valueOrdering,
	}, nil
}

// Wrap assembles a GroupSorted around a dataset the caller asserts already
// satisfies the structural invariants, without moving or sorting anything.
// The assertion can be checked offline with Validate.
func Wrap[K, V any](
	data engine.Dataset[partition.Pair[K, V]],
	partitioner partition.Partitioner[K],
	keyOrdering ordering.Ordering[K],
	opts ...Option[K, V],
) (*GroupSorted[K, V], error) {
	if keyOrdering == nil {
		return nil, ErrNoKeyOrdering
	}
	o := defaultOptions[K, V]()
	for _, opt := range opts {
		opt(&o)
	}
	if partitioner != nil {
		o.partitioner = partitioner
	}
	return &GroupSorted[K, V]{
		data:          data,
		partitioner:   o.partitioner,
		numPartitions: data.NumPartitions(),
		keyOrdering:   keyOrdering,
		valueOrdering: o.valueOrdering,
	}, nil
}

// Dataset returns the underlying partitioned dataset.
func (g *GroupSorted[K, V]) Dataset() engine.Dataset[partition.Pair[K, V]] { return g.data }

// Partitioner returns the partitioner pairs were routed with.
func (g *GroupSorted[K, V]) Partitioner() partition.Partitioner[K] { return g.partitioner }

// NumPartitions returns the declared partition count.
func (g *GroupSorted[K, V]) NumPartitions() int { return g.numPartitions }

// KeyOrdering returns the total order keys are sorted by.
func (g *GroupSorted[K, V]) KeyOrdering() ordering.Ordering[K] { return g.keyOrdering }

// ValueOrdering returns the declared value ordering, if any.
func (g *GroupSorted[K, V]) ValueOrdering() (ordering.Ordering[V], bool) {
	return g.valueOrdering, g.valueOrdering != nil
}

// comparePairs derives the combined in-partition ordering: key ordering
// first, then the value ordering as a secondary key when declared.
func comparePairs[K, V any](keyOrd ordering.Ordering[K], valOrd ordering.Ordering[V]) func(a, b partition.Pair[K, V]) int {
	return func(a, b partition.Pair[K, V]) int {
		if c := keyOrd.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		if valOrd == nil {
			return 0
		}
		return valOrd.Compare(a.Value, b.Value)
	}
}

// combinePartitions performs the map-side pre-combine: within each source
// partition, same-key pairs are folded together with f before the shuffle.
// The accumulation tree keeps keys ordered so the shuffle input is already
// key-grouped per source partition.
func combinePartitions[K, V any](
	src engine.Dataset[partition.Pair[K, V]],
	keyOrd ordering.Ordering[K],
	f func(V, V) V,
) engine.Dataset[partition.Pair[K, V]] {
	return engine.MapPartitions(src, func(_ int, in iter.Seq[partition.Pair[K, V]]) iter.Seq[partition.Pair[K, V]] {
		return func(yield func(partition.Pair[K, V]) bool) {
			tree := btree.NewG(2, func(a, b partition.Pair[K, V]) bool {
				return keyOrd.Compare(a.Key, b.Key) < 0
			})
			for p := range in {
				if cur, ok := tree.Get(p); ok {
					p.Value = f(cur.Value, p.Value)
				}
				tree.ReplaceOrInsert(p)
			}
			tree.Ascend(func(p partition.Pair[K, V]) bool {
				return yield(p)
			})
		}
	})
}
