// Package local provides an in-memory implementation of the partitioned
// stream engine: slice-backed datasets and a bucket-then-sort Distribute.
// It is the engine used by tests and single-process workloads.
package local

import (
	"errors"
	"iter"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/davidvella/groupsort/engine"
)

var ErrNumPartitions = errors.New("local: number of partitions must be at least 1")

// options defines the configuration of a Shuffle.
type options struct {
	log         *logrus.Logger
	parallelism int
}

// Option is a function that configures a Shuffle.
type Option func(*options)

// WithLogger sets the logger used for shuffle statistics.
func WithLogger(log *logrus.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithParallelism caps the number of partitions sorted concurrently.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

func defaultOptions() options {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return options{
		log:         log,
		parallelism: runtime.GOMAXPROCS(0),
	}
}

type slices[T any] struct {
	parts [][]T
}

func (s *slices[T]) NumPartitions() int { return len(s.parts) }

func (s *slices[T]) Partition(i int) iter.Seq[T] {
	part := s.parts[i]
	return func(yield func(T) bool) {
		for _, v := range part {
			if !yield(v) {
				return
			}
		}
	}
}

// Slices returns a dataset over the given partitions. The slices are not
// copied; callers must not mutate them afterwards.
func Slices[T any](parts ...[]T) engine.Dataset[T] {
	return &slices[T]{parts: parts}
}

// FromSlice returns a single-partition dataset over elems.
func FromSlice[T any](elems []T) engine.Dataset[T] {
	return Slices(elems)
}

// Shuffle is the in-memory shuffle engine for elements of type T.
type Shuffle[T any] struct {
	opts options
}

// NewShuffle returns a Shuffle configured with the given options.
func NewShuffle[T any](opts ...Option) *Shuffle[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Shuffle[T]{opts: o}
}

// Distribute routes every element of src into the partition chosen by
// partitionFn, then stable-sorts each destination partition with compare.
// Partitions are sorted concurrently.
func (s *Shuffle[T]) Distribute(src engine.Dataset[T], numPartitions int, partitionFn func(T) int, compare func(a, b T) int) (engine.Dataset[T], error) {
	if numPartitions < 1 {
		return nil, ErrNumPartitions
	}

	buckets := make([][]T, numPartitions)
	total := 0
	for p := 0; p < src.NumPartitions(); p++ {
		for v := range src.Partition(p) {
			dest := partitionFn(v)
			buckets[dest] = append(buckets[dest], v)
			total++
		}
	}
	if err := engineErr(src); err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(s.opts.parallelism)
	for _, bucket := range buckets {
		g.Go(func() error {
			sort.SliceStable(bucket, func(i, j int) bool {
				return compare(bucket[i], bucket[j]) < 0
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.opts.log.WithFields(logrus.Fields{
		"source_partitions": src.NumPartitions(),
		"partitions":        numPartitions,
		"pairs":             total,
	}).Debug("distributed dataset")

	return Slices(buckets...), nil
}

func engineErr(d any) error {
	if f, ok := d.(engine.Faulter); ok {
		return f.Err()
	}
	return nil
}
