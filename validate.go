package groupsort

import (
	"fmt"

	"github.com/davidvella/groupsort/partition"
)

// Validate verifies the structural invariants of the structure: a
// partitioner and key ordering are present, the declared partition count
// matches the physical one, every pair resides in its partitioner-assigned
// partition, and adjacent pairs within a partition are non-decreasing under
// the combined (key, value) ordering. With no declared value ordering the
// check degrades to keys being non-decreasing.
//
// Validate reads every pair, so it is an offline conformance check, not a
// hot-path guard. It is the oracle used to verify every operator's output.
func (g *GroupSorted[K, V]) Validate() error {
	if g.partitioner == nil {
		return ErrNoPartitioner
	}
	if g.keyOrdering == nil {
		return ErrNoKeyOrdering
	}
	if physical := g.data.NumPartitions(); physical != g.numPartitions {
		return fmt.Errorf("%w: declared %d, physical %d", ErrPartitionCount, g.numPartitions, physical)
	}

	compare := comparePairs(g.keyOrdering, g.valueOrdering)
	for p := 0; p < g.numPartitions; p++ {
		var prev partition.Pair[K, V]
		first := true
		i := 0
		for pair := range g.data.Partition(p) {
			if assigned := g.partitioner.Partition(pair.Key, g.numPartitions); assigned != p {
				return fmt.Errorf("%w: partition %d position %d belongs in partition %d", ErrWrongPartition, p, i, assigned)
			}
			if !first && compare(prev, pair) > 0 {
				return fmt.Errorf("%w: partition %d position %d", ErrOutOfOrder, p, i)
			}
			prev = pair
			first = false
			i++
		}
	}
	return faultOf(g.data)
}

func faultOf(d any) error {
	if f, ok := d.(interface{ Err() error }); ok {
		return f.Err()
	}
	return nil
}
