package groupsort_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/groupsort"
	"github.com/davidvella/groupsort/engine"
	"github.com/davidvella/groupsort/engine/local"
	"github.com/davidvella/groupsort/ordering"
	"github.com/davidvella/groupsort/partition"
)

type pair = partition.Pair[string, int]

func pairs(kv ...any) []pair {
	out := make([]pair, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		out = append(out, partition.NewPair(kv[i].(string), kv[i+1].(int)))
	}
	return out
}

// groupSort builds a GroupSorted over the in-memory engine.
func groupSort(t *testing.T, input []pair, numPartitions int, opts ...groupsort.Option[string, int]) *groupsort.GroupSorted[string, int] {
	t.Helper()
	gs, err := groupsort.GroupSort(
		local.NewShuffle[pair](),
		local.FromSlice(input),
		numPartitions,
		ordering.Natural[string](),
		opts...,
	)
	require.NoError(t, err)
	return gs
}

func collect[K, V any](t *testing.T, gs *groupsort.GroupSorted[K, V]) []partition.Pair[K, V] {
	t.Helper()
	out, err := engine.Collect(gs.Dataset())
	require.NoError(t, err)
	return out
}

func TestGroupSort_MultisetPreserved(t *testing.T) {
	input := pairs(
		"cherry", 3, "apple", 2, "banana", 7, "apple", 1,
		"date", 9, "banana", 4, "apple", 5, "cherry", 3,
	)

	for _, numPartitions := range []int{1, 2, 3, 5, 8} {
		gs := groupSort(t, input, numPartitions)
		require.NoError(t, gs.Validate())
		assert.ElementsMatch(t, input, collect(t, gs), "numPartitions=%d", numPartitions)
	}
}

func TestGroupSort_MultisetPreservedWithValueOrdering(t *testing.T) {
	input := pairs("b", 3, "a", 2, "b", 1, "a", 9, "a", 2)

	for _, numPartitions := range []int{1, 2, 4} {
		gs := groupSort(t, input, numPartitions,
			groupsort.WithValueOrdering[string, int](ordering.Natural[int]()))
		require.NoError(t, gs.Validate())
		assert.ElementsMatch(t, input, collect(t, gs))
	}
}

func TestGroupSort_ValueOrderingSortsWithinKey(t *testing.T) {
	gs := groupSort(t, pairs("a", 3, "a", 1, "a", 2, "b", 9, "b", 8), 1,
		groupsort.WithValueOrdering[string, int](ordering.Natural[int]()))

	assert.Equal(t, pairs("a", 1, "a", 2, "a", 3, "b", 8, "b", 9), collect(t, gs))
}

func TestGroupSort_ReverseValueOrdering(t *testing.T) {
	gs := groupSort(t, pairs("a", 1, "a", 3, "a", 2), 1,
		groupsort.WithValueOrdering[string, int](ordering.Reverse(ordering.Natural[int]())))

	require.NoError(t, gs.Validate())
	assert.Equal(t, pairs("a", 3, "a", 2, "a", 1), collect(t, gs))
}

func TestGroupSort_InvalidPartitionCount(t *testing.T) {
	for _, numPartitions := range []int{0, -1} {
		_, err := groupsort.GroupSort(
			local.NewShuffle[pair](),
			local.FromSlice(pairs("a", 1)),
			numPartitions,
			ordering.Natural[string](),
		)
		assert.ErrorIs(t, err, groupsort.ErrNumPartitions)
	}
}

func TestGroupSort_RequiresKeyOrdering(t *testing.T) {
	_, err := groupsort.GroupSort(
		local.NewShuffle[pair](),
		local.FromSlice(pairs("a", 1)),
		1,
		nil,
	)
	assert.ErrorIs(t, err, groupsort.ErrNoKeyOrdering)
}

func TestGroupSort_CombinerMatchesInMemoryFold(t *testing.T) {
	input := pairs(
		"a", 1, "b", 2, "a", 3, "c", 4, "b", 5, "a", 6,
		"c", 7, "c", 8, "a", 9,
	)

	want := map[string]int{}
	for _, p := range input {
		want[p.Key] += p.Value
	}

	sum := func(a, b int) int { return a + b }
	for _, numPartitions := range []int{1, 2, 3, 7} {
		gs := groupSort(t, input, numPartitions, groupsort.WithCombiner[string, int](sum))
		require.NoError(t, gs.Validate())

		got := map[string]int{}
		for _, p := range collect(t, gs) {
			// Pre-combined within one source partition; finish the fold here.
			got[p.Key] += p.Value
		}
		assert.Equal(t, want, got, "numPartitions=%d", numPartitions)
	}
}

func TestGroupSort_CombinerSingleSourcePartitionFullyCombines(t *testing.T) {
	// One source partition means the map-side combine sees every pair, so
	// each key survives as exactly one pair.
	gs := groupSort(t, pairs("a", 1, "b", 2, "a", 3, "a", 4), 2,
		groupsort.WithCombiner[string, int](func(a, b int) int { return a + b }))

	assert.ElementsMatch(t, pairs("a", 8, "b", 2), collect(t, gs))
}

func TestGroupSort_CustomPartitioner(t *testing.T) {
	evens := partition.Fn[string](func(key string, numPartitions int) int {
		if key < "m" {
			return 0
		}
		return 1
	})

	gs := groupSort(t, pairs("zebra", 1, "ant", 2, "moth", 3, "bee", 4), 2,
		groupsort.WithPartitioner[string, int](evens))
	require.NoError(t, gs.Validate())

	var first []string
	for p := range gs.Dataset().Partition(0) {
		first = append(first, p.Key)
	}
	assert.Equal(t, []string{"ant", "bee"}, first)
}

func TestIntrospection(t *testing.T) {
	valOrd := ordering.Natural[int]()
	gs := groupSort(t, pairs("a", 1), 3, groupsort.WithValueOrdering[string, int](valOrd))

	assert.Equal(t, 3, gs.NumPartitions())
	assert.True(t, ordering.Same(ordering.Natural[string](), gs.KeyOrdering()))
	assert.NotNil(t, gs.Partitioner())

	got, ok := gs.ValueOrdering()
	require.True(t, ok)
	assert.True(t, ordering.Same(valOrd, got))

	_, ok = groupSort(t, pairs("a", 1), 1).ValueOrdering()
	assert.False(t, ok)
}

func TestWrap(t *testing.T) {
	part := partition.Fn[string](func(string, int) int { return 0 })
	data := local.Slices(pairs("a", 1, "a", 2, "b", 3))

	gs, err := groupsort.Wrap(data, part, ordering.Natural[string]())
	require.NoError(t, err)
	assert.Equal(t, 1, gs.NumPartitions())
	require.NoError(t, gs.Validate())
}

func TestValidate(t *testing.T) {
	part := partition.Fn[string](func(string, int) int { return 0 })

	tests := []struct {
		name string
		data engine.Dataset[pair]
		want error
	}{
		{
			name: "valid",
			data: local.Slices(pairs("a", 1, "b", 2)),
			want: nil,
		},
		{
			name: "keys out of order",
			data: local.Slices(pairs("b", 1, "a", 2)),
			want: groupsort.ErrOutOfOrder,
		},
		{
			name: "values out of order within key",
			data: local.Slices(pairs("a", 2, "a", 1)),
			want: groupsort.ErrOutOfOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs, err := groupsort.Wrap(tt.data, part, ordering.Natural[string](),
				groupsort.WithValueOrdering[string, int](ordering.Natural[int]()))
			require.NoError(t, err)

			if tt.want == nil {
				assert.NoError(t, gs.Validate())
				return
			}
			assert.ErrorIs(t, gs.Validate(), tt.want)
		})
	}
}

func TestValidate_WrongPartition(t *testing.T) {
	// Partitioner sends everything to partition 1, but the pair sits in 0.
	part := partition.Fn[string](func(string, int) int { return 1 })
	gs, err := groupsort.Wrap(local.Slices(pairs("a", 1), nil), part, ordering.Natural[string]())
	require.NoError(t, err)

	assert.ErrorIs(t, gs.Validate(), groupsort.ErrWrongPartition)
}

func TestValidate_UnorderedValuesAllowedWithoutValueOrdering(t *testing.T) {
	part := partition.Fn[string](func(string, int) int { return 0 })
	gs, err := groupsort.Wrap(local.Slices(pairs("a", 9, "a", 1, "b", 5)), part, ordering.Natural[string]())
	require.NoError(t, err)

	assert.NoError(t, gs.Validate())
}
