package groupsort

import (
	"errors"
	"iter"

	"github.com/davidvella/groupsort/engine"
	"github.com/davidvella/groupsort/loser"
	"github.com/davidvella/groupsort/ordering"
	"github.com/davidvella/groupsort/partition"
)

var errNoInputs = errors.New("groupsort: merge union requires at least one input")

// MergeUnion concatenates two co-partitioned structures as a multiset:
// duplicates from each side are retained. When both sides share the same
// effective ordering the union is a linear per-partition two-pointer merge
// with no data movement; otherwise the raw pairs of both sides are
// concatenated and regrouped with the receiver's partitioner and orderings,
// at the receiver's partition count. sh is only consulted on that fallback
// path.
//
// As with the joins, co-partitioning is a caller contract that is not
// verified on the hot path.
func (g *GroupSorted[K, V]) MergeUnion(other *GroupSorted[K, V], sh engine.Shuffler[partition.Pair[K, V]]) (*GroupSorted[K, V], error) {
	return MergeUnionAll(sh, g, other)
}

// MergeUnionAll generalizes MergeUnion to any number of structures. With a
// single input it returns that input unchanged. When every input shares the
// first input's effective ordering and partition count, partitions are
// merged with a loser tree in one linear pass; otherwise everything is
// concatenated and regrouped like the binary fallback.
func MergeUnionAll[K, V any](sh engine.Shuffler[partition.Pair[K, V]], gs ...*GroupSorted[K, V]) (*GroupSorted[K, V], error) {
	if len(gs) == 0 {
		return nil, errNoInputs
	}
	head := gs[0]
	if len(gs) == 1 {
		return head, nil
	}

	if mergeableWith(head, gs[1:]) {
		compare := comparePairs(head.keyOrdering, head.valueOrdering)
		datasets := make([]engine.Dataset[partition.Pair[K, V]], len(gs))
		for i, g := range gs {
			datasets[i] = g.data
		}
		data, err := engine.ZipAllPartitions(datasets,
			func(_ int, ins []iter.Seq[partition.Pair[K, V]]) iter.Seq[partition.Pair[K, V]] {
				if len(ins) == 2 {
					return mergeTwo(compare, ins[0], ins[1])
				}
				return loser.New(ins, compare).All()
			})
		if err != nil {
			return nil, err
		}
		return &GroupSorted[K, V]{
			data:          data,
			partitioner:   head.partitioner,
			numPartitions: head.numPartitions,
			keyOrdering:   head.keyOrdering,
			valueOrdering: head.valueOrdering,
		}, nil
	}

	// Incompatible orderings: concatenate the raw pairs and rebuild.
	raw := make([]engine.Dataset[partition.Pair[K, V]], len(gs))
	for i, g := range gs {
		raw[i] = g.data
	}
	opts := []Option[K, V]{WithPartitioner[K, V](head.partitioner)}
	if head.valueOrdering != nil {
		opts = append(opts, WithValueOrdering[K, V](head.valueOrdering))
	}
	return GroupSort(sh, engine.Append(raw...), head.numPartitions, head.keyOrdering, opts...)
}

// mergeableWith reports whether every other structure shares head's
// partition count and effective (key, value) ordering, which is what the
// linear merge relies on.
func mergeableWith[K, V any](head *GroupSorted[K, V], rest []*GroupSorted[K, V]) bool {
	for _, g := range rest {
		if g.numPartitions != head.numPartitions {
			return false
		}
		if !ordering.Same(head.keyOrdering, g.keyOrdering) {
			return false
		}
		if !ordering.Same(head.valueOrdering, g.valueOrdering) {
			return false
		}
	}
	return true
}

// mergeTwo is the two-pointer linear merge. Ties prefer the left side, so
// merging is stable with respect to input order.
func mergeTwo[T any](compare func(a, b T) int, left, right iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		nextL, stopL := iter.Pull(left)
		defer stopL()
		nextR, stopR := iter.Pull(right)
		defer stopR()

		l, okL := nextL()
		r, okR := nextR()
		for okL && okR {
			if compare(l, r) <= 0 {
				if !yield(l) {
					return
				}
				l, okL = nextL()
			} else {
				if !yield(r) {
					return
				}
				r, okR = nextR()
			}
		}
		for ; okL; l, okL = nextL() {
			if !yield(l) {
				return
			}
		}
		for ; okR; r, okR = nextR() {
			if !yield(r) {
				return
			}
		}
	}
}
