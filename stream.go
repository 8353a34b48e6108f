package groupsort

import (
	"iter"

	"github.com/davidvella/groupsort/engine"
	"github.com/davidvella/groupsort/partition"
)

// MapStreamByKey feeds each key's value sequence to f exactly once, in a
// single forward pass, and emits every produced element paired with that
// key, in f's yield order. A key whose output sequence is empty is absent
// from the result.
//
// The value sequence handed to f is lazy and single-use: f may stop
// consuming it at any point and the remainder of the group is skipped. The
// result keeps the input's partitioning and per-partition key order; any
// declared value ordering is dropped.
func MapStreamByKey[K, V, W any](g *GroupSorted[K, V], f func(values iter.Seq[V]) iter.Seq[W]) *GroupSorted[K, W] {
	return MapStreamByKeyWithContext(g,
		func() struct{} { return struct{}{} },
		func(_ struct{}, values iter.Seq[V]) iter.Seq[W] { return f(values) },
	)
}

// MapStreamByKeyWithContext behaves like MapStreamByKey but threads a
// per-partition mutable context through every per-key call. newContext is
// invoked once per partition per execution attempt; the context's state
// persists across the keys of that partition and resetting it between keys
// is f's responsibility. Replayed attempts get a fresh context.
func MapStreamByKeyWithContext[K, V, W, C any](
	g *GroupSorted[K, V],
	newContext func() C,
	f func(pctx C, values iter.Seq[V]) iter.Seq[W],
) *GroupSorted[K, W] {
	keyOrd := g.keyOrdering
	data := engine.MapPartitions(g.data, func(_ int, in iter.Seq[partition.Pair[K, V]]) iter.Seq[partition.Pair[K, W]] {
		return func(yield func(partition.Pair[K, W]) bool) {
			pctx := newContext()

			next, stop := iter.Pull(in)
			defer stop()

			cur, ok := next()
			for ok {
				key := cur.Key

				// advanced flips once the cursor has moved past the
				// current group, either onto the next key or the end.
				advanced := false
				values := func(yield func(V) bool) {
					for {
						if !yield(cur.Value) {
							return
						}
						cur, ok = next()
						if !ok || keyOrd.Compare(cur.Key, key) != 0 {
							advanced = true
							return
						}
					}
				}

				for w := range f(pctx, values) {
					if !yield(partition.NewPair(key, w)) {
						return
					}
				}

				// f stopped early (or never consumed the sequence);
				// skip the rest of the group.
				for !advanced {
					cur, ok = next()
					if !ok || keyOrd.Compare(cur.Key, key) != 0 {
						advanced = true
					}
				}
			}
		}
	})

	return &GroupSorted[K, W]{
		data:          data,
		partitioner:   g.partitioner,
		numPartitions: g.numPartitions,
		keyOrdering:   g.keyOrdering,
	}
}

// FoldLeftByKey left-folds f over each key's values starting from zero,
// following the established per-key value order, and emits exactly one
// (key, accumulator) pair per key. f must not mutate zero; it is reused as
// the seed of every group.
func FoldLeftByKey[K, V, B any](g *GroupSorted[K, V], zero B, f func(acc B, v V) B) *GroupSorted[K, B] {
	return MapStreamByKey(g, func(values iter.Seq[V]) iter.Seq[B] {
		return func(yield func(B) bool) {
			acc := zero
			for v := range values {
				acc = f(acc, v)
			}
			yield(acc)
		}
	})
}

// ReduceLeftByKey folds f over each key's values using the first value as
// the seed, and emits one (key, value) pair per key. Groups always hold at
// least one value, so the seed always exists.
func (g *GroupSorted[K, V]) ReduceLeftByKey(f func(acc, v V) V) *GroupSorted[K, V] {
	return MapStreamByKey(g, func(values iter.Seq[V]) iter.Seq[V] {
		return func(yield func(V) bool) {
			var acc V
			first := true
			for v := range values {
				if first {
					acc, first = v, false
					continue
				}
				acc = f(acc, v)
			}
			if !first {
				yield(acc)
			}
		}
	})
}

// ScanLeftByKey emits, for a group of n values, n+1 pairs per key: zero
// first, then every running fold after consuming 1..n values, in per-key
// order. Like FoldLeftByKey, f must not mutate zero.
func ScanLeftByKey[K, V, B any](g *GroupSorted[K, V], zero B, f func(acc B, v V) B) *GroupSorted[K, B] {
	return MapStreamByKey(g, func(values iter.Seq[V]) iter.Seq[B] {
		return func(yield func(B) bool) {
			acc := zero
			if !yield(acc) {
				return
			}
			for v := range values {
				acc = f(acc, v)
				if !yield(acc) {
					return
				}
			}
		}
	})
}
