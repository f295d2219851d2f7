// Package compare builds total orders over the result object model.
//
// Every comparer is a Func[T] composed from a few generic building blocks:
//
//   - Ptr: nil sorts first, identical pointers are equal without a
//     field walk, otherwise the pointees are compared
//   - Slice: nil first, then length, then element by element
//   - Map: nil first, then entry count, then sorted keys, then values
//     in key order
//   - Struct: a declarative, ordered field list built with By
//
// The per-entity field lists in entities.go are part of the report
// contract: changing a field's position changes the canonical order of
// every emitted report.
//
// Thread-safety model: all comparers are stateless after package
// initialization and safe for concurrent use.
package compare
