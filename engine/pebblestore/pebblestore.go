// Package pebblestore implements the partitioned stream engine on top of a
// Pebble database. Distribute writes every element under an order-preserving
// key, so the LSM itself produces the partitioned, locally sorted layout;
// datasets iterate a partition's key range with a Pebble iterator and decode
// values on the fly.
//
// The store owns all serialization: elements cross the engine boundary only
// through the Encoding supplied at Open.
package pebblestore

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"

	"github.com/davidvella/groupsort/engine"
)

var (
	ErrStoreClosed   = errors.New("pebblestore: store already closed")
	ErrNumPartitions = errors.New("pebblestore: number of partitions must be at least 1")
)

const maxBatchBytes = 4 << 20

// options configures the store.
type options struct {
	log          *logrus.Logger
	cacheSize    int64
	maxOpenFiles int
}

// Option is a function that configures the store.
type Option func(*options)

// WithLogger sets the logger used for distribution statistics.
func WithLogger(log *logrus.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithCacheSize sets the Pebble block cache size in bytes.
func WithCacheSize(n int64) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithMaxOpenFiles caps the number of files Pebble keeps open.
func WithMaxOpenFiles(n int) Option {
	return func(o *options) {
		o.maxOpenFiles = n
	}
}

func defaultOptions() options {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return options{
		log:          log,
		cacheSize:    8 << 20,
		maxOpenFiles: 256,
	}
}

// Store is a disk-backed shuffle engine for elements of type T. Every
// Distribute call writes a new table into the database; datasets returned
// from Distribute stay readable until the store is closed.
type Store[T any] struct {
	db     *pebble.DB
	enc    Encoding[T]
	opts   options
	tables atomic.Uint32
	closed atomic.Bool
}

// Open opens (creating if necessary) a store at path.
func Open[T any](path string, enc Encoding[T], opts ...Option) (*Store[T], error) {
	if enc.SortKey == nil || enc.Marshal == nil || enc.Unmarshal == nil {
		return nil, errors.New("pebblestore: encoding requires SortKey, Marshal and Unmarshal")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := pebble.Open(path, &pebble.Options{
		Cache:        pebble.NewCache(o.cacheSize),
		MaxOpenFiles: o.maxOpenFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("pebblestore: failed to open database: %w", err)
	}

	return &Store[T]{
		db:   db,
		enc:  enc,
		opts: o,
	}, nil
}

// Close releases the underlying database. Datasets produced by the store
// must not be iterated afterwards.
func (s *Store[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStoreClosed
	}
	return s.db.Close()
}

// Distribute routes every element of src to the partition chosen by
// partitionFn and persists it under [partition | sort key | sequence], so
// reading a partition back yields the sorted layout. The compare function is
// not consulted: ordering is entirely defined by the encoding's SortKey,
// which must agree with it.
func (s *Store[T]) Distribute(src engine.Dataset[T], numPartitions int, partitionFn func(T) int, _ func(a, b T) int) (engine.Dataset[T], error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if numPartitions < 1 {
		return nil, ErrNumPartitions
	}

	table := s.tables.Add(1)
	batch := s.db.NewBatch()
	defer batch.Close()

	var seq uint64
	for p := 0; p < src.NumPartitions(); p++ {
		for v := range src.Partition(p) {
			value, err := s.enc.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("pebblestore: failed to marshal element: %w", err)
			}
			key := storedKey(table, partitionFn(v), s.enc.SortKey(v), seq)
			seq++

			if err := batch.Set(key, value, nil); err != nil {
				return nil, fmt.Errorf("pebblestore: failed to stage element: %w", err)
			}
			if batch.Len() > maxBatchBytes {
				if err := batch.Commit(nil); err != nil {
					return nil, fmt.Errorf("pebblestore: failed to commit batch: %w", err)
				}
				batch = s.db.NewBatch()
			}
		}
	}
	if err := srcErr(src); err != nil {
		return nil, err
	}
	if err := batch.Commit(nil); err != nil {
		return nil, fmt.Errorf("pebblestore: failed to commit batch: %w", err)
	}

	s.opts.log.WithFields(logrus.Fields{
		"table":      table,
		"partitions": numPartitions,
		"elements":   seq,
	}).Debug("distributed dataset")

	return &dataset[T]{store: s, table: table, numPartitions: numPartitions}, nil
}

type dataset[T any] struct {
	store         *Store[T]
	table         uint32
	numPartitions int

	mu  sync.Mutex
	err error
}

func (d *dataset[T]) NumPartitions() int { return d.numPartitions }

// Partition returns a fresh cursor over partition i. The cursor decodes
// values lazily and may be abandoned early; iterator failures are surfaced
// through Err.
func (d *dataset[T]) Partition(i int) iter.Seq[T] {
	return func(yield func(T) bool) {
		lower, upper := partitionBounds(d.table, i)
		it, err := d.store.db.NewIter(&pebble.IterOptions{
			LowerBound: lower,
			UpperBound: upper,
		})
		if err != nil {
			d.setErr(fmt.Errorf("pebblestore: failed to open iterator: %w", err))
			return
		}
		defer func() {
			if err := it.Close(); err != nil {
				d.setErr(fmt.Errorf("pebblestore: failed to close iterator: %w", err))
			}
		}()

		for it.First(); it.Valid(); it.Next() {
			v, err := d.store.enc.Unmarshal(it.Value())
			if err != nil {
				d.setErr(err)
				return
			}
			if !yield(v) {
				return
			}
		}
		if err := it.Error(); err != nil {
			d.setErr(fmt.Errorf("pebblestore: iteration failed: %w", err))
		}
	}
}

// Err reports the first failure observed by any cursor of this dataset.
func (d *dataset[T]) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *dataset[T]) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
	}
}

func srcErr(d any) error {
	if f, ok := d.(engine.Faulter); ok {
		return f.Err()
	}
	return nil
}
