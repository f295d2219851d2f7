package compare

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"
)

// Func is a three-way comparison: negative if a < b, zero if equal,
// positive if a > b.
type Func[T any] func(a, b T) int

// Equal reports whether f considers a and b equal.
func Equal[T any](f Func[T], a, b T) bool {
	return f(a, b) == 0
}

// String compares strings ordinally (byte-wise, culture-invariant).
func String(a, b string) int {
	return strings.Compare(a, b)
}

// Ordered compares any ordered type with cmp.Compare.
func Ordered[T cmp.Ordered](a, b T) int {
	return cmp.Compare(a, b)
}

// Bool orders false before true.
func Bool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// Time orders instants by nanosecond.
func Time(a, b time.Time) int {
	return a.Compare(b)
}

// Ptr lifts f to pointers. Identical pointers (including both nil) are
// equal; a nil pointer sorts before any non-nil one.
func Ptr[T any](f Func[T]) Func[*T] {
	return func(a, b *T) int {
		if a == b {
			return 0
		}
		if a == nil {
			return -1
		}
		if b == nil {
			return 1
		}
		return f(*a, *b)
	}
}

// Slice lifts f to slices. A nil slice sorts before a non-nil one, then
// the shorter slice sorts first, then elements are compared pairwise and
// the first non-zero comparison wins.
func Slice[T any](f Func[T]) Func[[]T] {
	return func(a, b []T) int {
		if c := absence(a == nil, b == nil); c != 0 || a == nil {
			return c
		}
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
		for i := range a {
			if c := f(a[i], b[i]); c != 0 {
				return c
			}
		}
		return 0
	}
}

// Map lifts f to maps. A nil map sorts before a non-nil one, then the map
// with fewer entries sorts first, then the ordinally sorted key lists are
// compared lexicographically, then values are compared in key order.
func Map[K cmp.Ordered, V any](f Func[V]) Func[map[K]V] {
	return func(a, b map[K]V) int {
		if c := absence(a == nil, b == nil); c != 0 || a == nil {
			return c
		}
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
		ak := sortedKeys(a)
		bk := sortedKeys(b)
		if c := slices.Compare(ak, bk); c != 0 {
			return c
		}
		for _, k := range ak {
			if c := f(a[k], b[k]); c != 0 {
				return c
			}
		}
		return 0
	}
}

// absence orders "missing" before "present". It returns 0 when both are
// missing or both are present.
func absence(aNil, bNil bool) int {
	switch {
	case aNil == bNil:
		return 0
	case aNil:
		return -1
	}
	return 1
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Field is one entry of a Struct comparer's field list.
type Field[T any] struct {
	name string
	cmp  func(a, b T) int
	desc bool
}

// By declares a field: get extracts it, f compares it.
func By[T, F any](name string, get func(T) F, f Func[F]) Field[T] {
	return Field[T]{
		name: name,
		cmp: func(a, b T) int {
			return f(get(a), get(b))
		},
	}
}

// Desc returns the field with its order reversed.
func (f Field[T]) Desc() Field[T] {
	f.desc = !f.desc
	return f
}

// Name returns the declared field name.
func (f Field[T]) Name() string {
	return f.name
}

// Struct compares values field by field in declaration order and returns
// the first non-zero result.
func Struct[T any](fields ...Field[T]) Func[T] {
	fs := slices.Clone(fields)
	return func(a, b T) int {
		for _, f := range fs {
			c := f.cmp(a, b)
			if c == 0 {
				continue
			}
			if f.desc {
				return -c
			}
			return c
		}
		return 0
	}
}

// Lazy defers building a comparer until its first use. It breaks the
// initialization cycle of recursive types.
func Lazy[T any](build func() Func[T]) Func[T] {
	get := sync.OnceValue(build)
	return func(a, b T) int {
		return get()(a, b)
	}
}
