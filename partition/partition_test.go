package partition_test

import (
	"testing"

	"github.com/matryer/is"

	"github.com/davidvella/groupsort/partition"
)

func TestNewPair(t *testing.T) {
	is := is.New(t)

	p := partition.NewPair("a", 1)
	is.Equal(p.Key, "a")
	is.Equal(p.Value, 1)
}

func TestHash_Deterministic(t *testing.T) {
	is := is.New(t)

	part := partition.Strings()
	for _, key := range []string{"", "a", "hello", "partition"} {
		first := part.Partition(key, 7)
		is.True(first >= 0 && first < 7)
		for i := 0; i < 10; i++ {
			is.Equal(part.Partition(key, 7), first)
		}
	}
}

func TestHash_SpreadsKeys(t *testing.T) {
	is := is.New(t)

	part := partition.Strings()
	seen := make(map[int]bool)
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		seen[part.Partition(key, 4)] = true
	}
	is.True(len(seen) > 1) // a hash over distinct keys should use more than one partition
}

func TestDefault_ArbitraryKeyTypes(t *testing.T) {
	is := is.New(t)

	type composite struct {
		A string
		B int
	}

	part := partition.Default[composite]()
	key := composite{A: "x", B: 3}
	got := part.Partition(key, 5)
	is.True(got >= 0 && got < 5)
	is.Equal(part.Partition(key, 5), got)
}

func TestFn(t *testing.T) {
	is := is.New(t)

	part := partition.Fn[int](func(key, numPartitions int) int {
		return key % numPartitions
	})
	is.Equal(part.Partition(9, 4), 1)
}
