package engine_test

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/groupsort/engine"
	"github.com/davidvella/groupsort/engine/local"
)

func TestMapPartitions(t *testing.T) {
	src := local.Slices([]int{1, 2}, []int{3})

	doubled := engine.MapPartitions(src, func(_ int, in iter.Seq[int]) iter.Seq[int] {
		return func(yield func(int) bool) {
			for v := range in {
				if !yield(v * 2) {
					return
				}
			}
		}
	})

	out, err := engine.Collect(doubled)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, out)
	assert.Equal(t, 2, doubled.NumPartitions())
}

func TestMapPartitions_Lazy(t *testing.T) {
	src := local.Slices([]int{1, 2, 3})

	calls := 0
	mapped := engine.MapPartitions(src, func(_ int, in iter.Seq[int]) iter.Seq[int] {
		return func(yield func(int) bool) {
			for v := range in {
				calls++
				if !yield(v) {
					return
				}
			}
		}
	})

	assert.Equal(t, 0, calls, "wrapping must not evaluate anything")

	// A bounded consumer stops pulling; upstream must not be forced further.
	for range mapped.Partition(0) {
		break
	}
	assert.Equal(t, 1, calls)
}

func TestMapPartitions_ReplaySafe(t *testing.T) {
	src := local.Slices([]int{1, 2})
	mapped := engine.MapPartitions(src, func(_ int, in iter.Seq[int]) iter.Seq[int] {
		return in
	})

	first, err := engine.Collect(mapped)
	require.NoError(t, err)
	second, err := engine.Collect(mapped)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestZipPartitions(t *testing.T) {
	left := local.Slices([]int{1, 2}, []int{3})
	right := local.Slices([]int{10}, []int{20, 30})

	sums, err := engine.ZipPartitions(left, right, func(_ int, l, r iter.Seq[int]) iter.Seq[int] {
		return func(yield func(int) bool) {
			total := 0
			for v := range l {
				total += v
			}
			for v := range r {
				total += v
			}
			yield(total)
		}
	})
	require.NoError(t, err)

	out, err := engine.Collect(sums)
	require.NoError(t, err)
	assert.Equal(t, []int{13, 53}, out)
}

func TestZipPartitions_PartitionMismatch(t *testing.T) {
	left := local.Slices([]int{1}, []int{2})
	right := local.Slices([]int{1})

	_, err := engine.ZipPartitions(left, right, func(_ int, l, _ iter.Seq[int]) iter.Seq[int] {
		return l
	})
	assert.ErrorIs(t, err, engine.ErrPartitionMismatch)
}

func TestZipAllPartitions(t *testing.T) {
	a := local.Slices([]int{1}, []int{2})
	b := local.Slices([]int{10}, []int{20})
	c := local.Slices([]int{100}, []int{200})

	sums, err := engine.ZipAllPartitions(
		[]engine.Dataset[int]{a, b, c},
		func(_ int, ins []iter.Seq[int]) iter.Seq[int] {
			return func(yield func(int) bool) {
				total := 0
				for _, in := range ins {
					for v := range in {
						total += v
					}
				}
				yield(total)
			}
		})
	require.NoError(t, err)

	out, err := engine.Collect(sums)
	require.NoError(t, err)
	assert.Equal(t, []int{111, 222}, out)
}

func TestZipAllPartitions_Errors(t *testing.T) {
	_, err := engine.ZipAllPartitions(nil, func(_ int, _ []iter.Seq[int]) iter.Seq[int] {
		return nil
	})
	assert.Error(t, err)

	a := local.Slices([]int{1})
	b := local.Slices([]int{1}, []int{2})
	_, err = engine.ZipAllPartitions(
		[]engine.Dataset[int]{a, b},
		func(_ int, ins []iter.Seq[int]) iter.Seq[int] { return ins[0] },
	)
	assert.ErrorIs(t, err, engine.ErrPartitionMismatch)
}

func TestAppend(t *testing.T) {
	a := local.Slices([]int{1}, []int{2})
	b := local.Slices([]int{3})

	all := engine.Append(a, b)
	assert.Equal(t, 3, all.NumPartitions())

	out, err := engine.Collect(all)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestCollect_PartitionOrder(t *testing.T) {
	src := local.Slices([]int{3, 1}, nil, []int{2})

	out, err := engine.Collect(src)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, out)
}

func TestCount(t *testing.T) {
	src := local.Slices([]int{1, 2}, []int{3}, nil)

	n, err := engine.Count(src)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
