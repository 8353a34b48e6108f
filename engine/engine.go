// Package engine defines the partitioned stream engine surface that
// grouped-sorted datasets are built on: a pull-based, replay-safe Dataset of
// partitioned elements, lazy partition-local combinators, the Distribute
// shuffle primitive, and the Collect/Count materialization boundary.
//
// A Dataset never evaluates anything by itself. MapPartitions and
// ZipPartitions wrap datasets in lazy views; work happens only when a
// partition cursor is consumed, and a consumer may stop pulling at any point.
// Every call to Partition returns a fresh cursor over the same data, so
// partition processing can be re-run after a failure.
package engine

import (
	"errors"
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrPartitionMismatch is returned when a two-input partition-local
	// operation is given datasets with different partition counts.
	ErrPartitionMismatch = errors.New("engine: datasets have different partition counts")
)

// Dataset is a partitioned collection of elements.
//
// Partition returns a single-pass cursor over partition i. Cursors are
// independent: calling Partition twice yields two cursors over identical
// data, which is what makes replay after a task failure safe. Implementations
// that can fail mid-iteration should also implement Faulter.
type Dataset[T any] interface {
	NumPartitions() int
	Partition(i int) iter.Seq[T]
}

// Faulter is implemented by datasets whose cursors can fail mid-iteration
// (for example disk-backed ones). A cursor that fails stops yielding;
// Err reports the first failure observed by any cursor.
type Faulter interface {
	Err() error
}

// Shuffler is the single cross-partition data-movement primitive. Distribute
// routes every element of src to the partition chosen by partitionFn and
// sorts each destination partition with compare. It is the only engine
// operation that moves data between partitions.
type Shuffler[T any] interface {
	Distribute(src Dataset[T], numPartitions int, partitionFn func(T) int, compare func(a, b T) int) (Dataset[T], error)
}

type mapped[T, U any] struct {
	src Dataset[T]
	fn  func(p int, in iter.Seq[T]) iter.Seq[U]
}

func (m *mapped[T, U]) NumPartitions() int { return m.src.NumPartitions() }

func (m *mapped[T, U]) Partition(i int) iter.Seq[U] {
	return m.fn(i, m.src.Partition(i))
}

func (m *mapped[T, U]) Err() error { return faultOf(m.src) }

// MapPartitions returns a lazy dataset whose partition i is fn applied to
// partition i of src. fn is called once per cursor; it must not retain or
// re-consume the input sequence.
func MapPartitions[T, U any](src Dataset[T], fn func(p int, in iter.Seq[T]) iter.Seq[U]) Dataset[U] {
	return &mapped[T, U]{src: src, fn: fn}
}

type zipped[A, B, R any] struct {
	left  Dataset[A]
	right Dataset[B]
	fn    func(p int, left iter.Seq[A], right iter.Seq[B]) iter.Seq[R]
}

func (z *zipped[A, B, R]) NumPartitions() int { return z.left.NumPartitions() }

func (z *zipped[A, B, R]) Partition(i int) iter.Seq[R] {
	return z.fn(i, z.left.Partition(i), z.right.Partition(i))
}

func (z *zipped[A, B, R]) Err() error {
	if err := faultOf(z.left); err != nil {
		return err
	}
	return faultOf(z.right)
}

// ZipPartitions returns a lazy dataset whose partition i is fn applied to
// partition i of both inputs. The inputs must have the same partition count.
func ZipPartitions[A, B, R any](left Dataset[A], right Dataset[B], fn func(p int, left iter.Seq[A], right iter.Seq[B]) iter.Seq[R]) (Dataset[R], error) {
	if left.NumPartitions() != right.NumPartitions() {
		return nil, fmt.Errorf("%w: %d and %d", ErrPartitionMismatch, left.NumPartitions(), right.NumPartitions())
	}
	return &zipped[A, B, R]{left: left, right: right, fn: fn}, nil
}

type zippedAll[T, R any] struct {
	srcs []Dataset[T]
	fn   func(p int, ins []iter.Seq[T]) iter.Seq[R]
}

func (z *zippedAll[T, R]) NumPartitions() int { return z.srcs[0].NumPartitions() }

func (z *zippedAll[T, R]) Partition(i int) iter.Seq[R] {
	ins := make([]iter.Seq[T], len(z.srcs))
	for s, src := range z.srcs {
		ins[s] = src.Partition(i)
	}
	return z.fn(i, ins)
}

func (z *zippedAll[T, R]) Err() error {
	for _, src := range z.srcs {
		if err := faultOf(src); err != nil {
			return err
		}
	}
	return nil
}

// ZipAllPartitions generalizes ZipPartitions to any number of co-partitioned
// inputs. At least one dataset is required and all must share a partition
// count.
func ZipAllPartitions[T, R any](srcs []Dataset[T], fn func(p int, ins []iter.Seq[T]) iter.Seq[R]) (Dataset[R], error) {
	if len(srcs) == 0 {
		return nil, errors.New("engine: at least one dataset is required")
	}
	n := srcs[0].NumPartitions()
	for _, src := range srcs[1:] {
		if src.NumPartitions() != n {
			return nil, fmt.Errorf("%w: %d and %d", ErrPartitionMismatch, n, src.NumPartitions())
		}
	}
	return &zippedAll[T, R]{srcs: srcs, fn: fn}, nil
}

type appended[T any] struct {
	srcs []Dataset[T]
}

func (a *appended[T]) NumPartitions() int {
	n := 0
	for _, src := range a.srcs {
		n += src.NumPartitions()
	}
	return n
}

func (a *appended[T]) Partition(i int) iter.Seq[T] {
	for _, src := range a.srcs {
		if i < src.NumPartitions() {
			return src.Partition(i)
		}
		i -= src.NumPartitions()
	}
	return func(func(T) bool) {}
}

func (a *appended[T]) Err() error {
	for _, src := range a.srcs {
		if err := faultOf(src); err != nil {
			return err
		}
	}
	return nil
}

// Append returns a dataset exposing the partitions of every input in order.
// No data is moved; the result simply has the sum of the partition counts.
func Append[T any](srcs ...Dataset[T]) Dataset[T] {
	return &appended[T]{srcs: srcs}
}

// Collect materializes every partition, in partition order, into one slice.
// Partitions are evaluated in parallel. Collect is a test and debug
// boundary, not part of the streaming path.
func Collect[T any](d Dataset[T]) ([]T, error) {
	parts := make([][]T, d.NumPartitions())
	var g errgroup.Group
	for p := 0; p < d.NumPartitions(); p++ {
		g.Go(func() error {
			for v := range d.Partition(p) {
				parts[p] = append(parts[p], v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := faultOf(d); err != nil {
		return nil, err
	}
	var out []T
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

// Count returns the total number of elements across all partitions,
// evaluating partitions in parallel.
func Count[T any](d Dataset[T]) (int64, error) {
	counts := make([]int64, d.NumPartitions())
	var g errgroup.Group
	for p := 0; p < d.NumPartitions(); p++ {
		g.Go(func() error {
			for range d.Partition(p) {
				counts[p]++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := faultOf(d); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range counts {
		n += c
	}
	return n, nil
}

func faultOf(d any) error {
	if f, ok := d.(Faulter); ok {
		return f.Err()
	}
	return nil
}
