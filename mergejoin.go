package groupsort

import (
	"iter"

	"github.com/davidvella/groupsort/engine"
	"github.com/davidvella/groupsort/ordering"
	"github.com/davidvella/groupsort/partition"
)

// JoinValue holds one side of a join row. Outer joins mark the side that had
// no matching key as unmatched.
type JoinValue[T any] struct {
	v  T
	ok bool
}

// Matched returns a JoinValue holding v.
func Matched[T any](v T) JoinValue[T] { return JoinValue[T]{v: v, ok: true} }

// Unmatched returns the absent marker.
func Unmatched[T any]() JoinValue[T] { return JoinValue[T]{} }

// Get returns the value and whether it is present.
func (j JoinValue[T]) Get() (T, bool) { return j.v, j.ok }

// Ok reports whether the value is present.
func (j JoinValue[T]) Ok() bool { return j.ok }

// Or returns the value if present, else fallback.
func (j JoinValue[T]) Or(fallback T) T {
	if j.ok {
		return j.v
	}
	return fallback
}

// Joined is one output row of a merge join.
type Joined[V, W any] struct {
	Left  JoinValue[V]
	Right JoinValue[W]
}

type joinKind int

const (
	joinInner joinKind = iota
	joinLeftOuter
	joinRightOuter
	joinFullOuter
)

// MergeJoin performs a full-outer sort-merge join of two co-partitioned,
// co-ordered structures: every key of either side appears in the output,
// with the unmatched side marked absent. See MergeJoinInner for the caller
// contract and cost model shared by all variants.
func MergeJoin[K, V, W any](left *GroupSorted[K, V], right *GroupSorted[K, W]) (*GroupSorted[K, Joined[V, W]], error) {
	return mergeJoin(left, right, joinFullOuter)
}

// MergeJoinInner joins only keys present on both sides.
//
// Both inputs must share partition count, partitioner and key ordering.
// This precondition is not verified on the hot path; Validate can check
// each side offline. Per partition the join walks both sorted key streams
// in lockstep: on equal keys the right side's whole value group is buffered
// and crossed with the streaming left group, emitted left-major. Memory is
// bounded by the largest single-key group on the right side, which makes
// the join unsuitable for high-cardinality many-to-many keys.
func MergeJoinInner[K, V, W any](left *GroupSorted[K, V], right *GroupSorted[K, W]) (*GroupSorted[K, Joined[V, W]], error) {
	return mergeJoin(left, right, joinInner)
}

// MergeJoinLeftOuter keeps every left key; right-only keys are dropped.
func MergeJoinLeftOuter[K, V, W any](left *GroupSorted[K, V], right *GroupSorted[K, W]) (*GroupSorted[K, Joined[V, W]], error) {
	return mergeJoin(left, right, joinLeftOuter)
}

// MergeJoinRightOuter keeps every right key; left-only keys are dropped.
func MergeJoinRightOuter[K, V, W any](left *GroupSorted[K, V], right *GroupSorted[K, W]) (*GroupSorted[K, Joined[V, W]], error) {
	return mergeJoin(left, right, joinRightOuter)
}

func mergeJoin[K, V, W any](left *GroupSorted[K, V], right *GroupSorted[K, W], kind joinKind) (*GroupSorted[K, Joined[V, W]], error) {
	keyOrd := left.keyOrdering
	data, err := engine.ZipPartitions(left.data, right.data,
		func(_ int, l iter.Seq[partition.Pair[K, V]], r iter.Seq[partition.Pair[K, W]]) iter.Seq[partition.Pair[K, Joined[V, W]]] {
			return joinPartition(keyOrd, kind, l, r)
		})
	if err != nil {
		return nil, err
	}
	return &GroupSorted[K, Joined[V, W]]{
		data:          data,
		partitioner:   left.partitioner,
		numPartitions: left.numPartitions,
		keyOrdering:   left.keyOrdering,
	}, nil
}

// joinPartition walks two sorted key streams of one partition in lockstep.
func joinPartition[K, V, W any](
	keyOrd ordering.Ordering[K],
	kind joinKind,
	left iter.Seq[partition.Pair[K, V]],
	right iter.Seq[partition.Pair[K, W]],
) iter.Seq[partition.Pair[K, Joined[V, W]]] {
	emitLeft := kind == joinLeftOuter || kind == joinFullOuter
	emitRight := kind == joinRightOuter || kind == joinFullOuter

	return func(yield func(partition.Pair[K, Joined[V, W]]) bool) {
		nextL, stopL := iter.Pull(left)
		defer stopL()
		nextR, stopR := iter.Pull(right)
		defer stopR()

		l, okL := nextL()
		r, okR := nextR()

		for okL && okR {
			switch c := keyOrd.Compare(l.Key, r.Key); {
			case c == 0:
				key := l.Key

				// Buffer the right group, stream the left group against it.
				var buffered []W
				for okR && keyOrd.Compare(r.Key, key) == 0 {
					buffered = append(buffered, r.Value)
					r, okR = nextR()
				}
				for okL && keyOrd.Compare(l.Key, key) == 0 {
					for _, w := range buffered {
						row := Joined[V, W]{Left: Matched(l.Value), Right: Matched(w)}
						if !yield(partition.NewPair(key, row)) {
							return
						}
					}
					l, okL = nextL()
				}
			case c < 0:
				if emitLeft {
					row := Joined[V, W]{Left: Matched(l.Value), Right: Unmatched[W]()}
					if !yield(partition.NewPair(l.Key, row)) {
						return
					}
				}
				l, okL = nextL()
			default:
				if emitRight {
					row := Joined[V, W]{Left: Unmatched[V](), Right: Matched(r.Value)}
					if !yield(partition.NewPair(r.Key, row)) {
						return
					}
				}
				r, okR = nextR()
			}
		}

		if emitLeft {
			for ; okL; l, okL = nextL() {
				row := Joined[V, W]{Left: Matched(l.Value), Right: Unmatched[W]()}
				if !yield(partition.NewPair(l.Key, row)) {
					return
				}
			}
		}
		if emitRight {
			for ; okR; r, okR = nextR() {
				row := Joined[V, W]{Left: Unmatched[V](), Right: Matched(r.Value)}
				if !yield(partition.NewPair(r.Key, row)) {
					return
				}
			}
		}
	}
}
