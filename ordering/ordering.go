// Package ordering provides total-order comparators for keys and values of
// grouped-sorted datasets. An Ordering reports the relative order of two
// elements the same way cmp.Compare does: negative when a sorts before b,
// zero when they are equivalent, positive otherwise.
//
// Orderings built with Natural and Reverse are comparable values, which lets
// two datasets detect that they share the same effective ordering (see Same)
// and merge linearly instead of regrouping.
package ordering

import (
	"reflect"

	"golang.org/x/exp/constraints"
)

// Ordering is a total order over T.
type Ordering[T any] interface {
	// Compare returns a negative value when a sorts before b, zero when a
	// and b are equivalent, and a positive value when a sorts after b.
	Compare(a, b T) int
}

// Func adapts a plain comparison function to an Ordering.
type Func[T any] func(a, b T) int

// Compare calls the function.
func (f Func[T]) Compare(a, b T) int { return f(a, b) }

type natural[T constraints.Ordered] struct{}

func (natural[T]) Compare(a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Natural returns the ordering given by the < operator. Two calls with the
// same type parameter return equal values, so Same recognizes them as the
// same ordering.
func Natural[T constraints.Ordered]() Ordering[T] {
	return natural[T]{}
}

type reverse[T any] struct {
	ord Ordering[T]
}

func (r reverse[T]) Compare(a, b T) int { return -r.ord.Compare(a, b) }

// Reverse returns the ordering that inverts ord.
func Reverse[T any](ord Ordering[T]) Ordering[T] {
	return reverse[T]{ord: ord}
}

type by[T any, S constraints.Ordered] struct {
	project func(T) S
}

func (b *by[T, S]) Compare(x, y T) int {
	return natural[S]{}.Compare(b.project(x), b.project(y))
}

// By orders T by a projection into an ordered type. The returned ordering
// has pointer identity: Same only recognizes it against the value returned
// by this exact call.
func By[T any, S constraints.Ordered](project func(T) S) Ordering[T] {
	return &by[T, S]{project: project}
}

// Same reports whether a and b are observably the same ordering. It is a
// best-effort identity check, not an extensional equality: comparable
// orderings (Natural, Reverse of comparable, By) are compared by value or
// pointer identity, Func orderings by code pointer, and everything else is
// considered distinct. Two Func orderings built from the same closure body
// with different captured state compare equal; use By or a named type when
// that distinction matters. Both sides being nil counts as the same (no
// ordering declared on either side).
func Same[T any](a, b Ordering[T]) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	// Comparable types may still hold non-comparable values behind an
	// interface field; treat those as distinct rather than panicking.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
