// Package groupsort provides a grouped-sorted abstraction over partitioned
// key-value datasets: all pairs sharing a key live in one partition,
// contiguously, optionally sorted by value within each key. On top of that
// invariant it offers streaming per-key operators that never materialize a
// key's value group, and sort-merge join and union engines that exploit the
// pre-established ordering instead of redistributing data.
//
// A GroupSorted is built with GroupSort, which routes every pair to the
// partition chosen by its partitioner and sorts each partition by key, then
// optionally by value. The single cross-partition data movement happens
// there, delegated to an engine.Shuffler. Everything after construction is
// pure, partition-local, single-pass transformation:
//
//   - MapStreamByKey feeds each key's lazy value sequence to a function once
//     and emits whatever it yields.
//   - FoldLeftByKey, ReduceLeftByKey and ScanLeftByKey fold each group in
//     its established order.
//   - MergeJoin and its Inner/LeftOuter/RightOuter variants walk two
//     co-partitioned, co-ordered structures in lockstep, buffering only the
//     right side's current key group.
//   - MergeUnion linearly merges two structures sharing an ordering, or
//     falls back to regrouping; MergeUnionAll merges any number of them.
//
// Value groups are exposed as iter.Seq cursors: consumers may stop early and
// the operators drain the remainder of the group themselves. All operators
// are lazy end to end; nothing is evaluated until a partition of the result
// is consumed, and datasets can be re-consumed for replay after a failure.
//
// The structural invariants of any GroupSorted, including every operator's
// output, can be verified with Validate.
package groupsort
