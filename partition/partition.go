// Package partition defines the key-value pair type carried by grouped-sorted
// datasets and the partitioner that assigns pairs to partitions.
package partition

import (
	"fmt"
	"hash/fnv"
)

// Pair is a single key-value record.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// NewPair returns a pair of k and v.
func NewPair[K, V any](k K, v V) Pair[K, V] {
	return Pair[K, V]{
		Key:   k,
		Value: v,
	}
}

// Partitioner deterministically assigns a key to a partition index in
// [0, numPartitions). The same key must always map to the same index for a
// given partition count; two datasets built with the same partitioner and
// count are co-partitioned.
type Partitioner[K any] interface {
	Partition(key K, numPartitions int) int
}

// Fn adapts a function to a Partitioner.
type Fn[K any] func(key K, numPartitions int) int

// Partition calls the function.
func (f Fn[K]) Partition(key K, numPartitions int) int { return f(key, numPartitions) }

// Hash returns a partitioner that hashes the bytes produced by encode with
// FNV-1a and takes the result modulo the partition count.
func Hash[K any](encode func(K) []byte) Partitioner[K] {
	return Fn[K](func(key K, numPartitions int) int {
		h := fnv.New32a()
		h.Write(encode(key))
		return int(h.Sum32() % uint32(numPartitions))
	})
}

// Default returns a partitioner usable with any key type. It hashes the
// fmt representation of the key, which is deterministic but slower than a
// purpose-built encoding; prefer Hash with an explicit encoder for hot paths.
func Default[K any]() Partitioner[K] {
	return Hash(func(key K) []byte {
		return fmt.Appendf(nil, "%v", key)
	})
}

// Strings returns a partitioner for string keys.
func Strings() Partitioner[string] {
	return Hash(func(key string) []byte { return []byte(key) })
}
