// Package ir defines the result object model shared by every other package:
// results, notifications, locations, graphs, artifact records, the sealed
// property-bag values, and their canonical JSON encoding.
//
// ir imports nothing internal. Everything else imports ir.
//
// Key design constraints:
//   - NO float types anywhere; property numbers are int64
//   - All JSON tags use lowerCamel names with omitempty
//   - Reports are serialized with MarshalCanonical only
package ir
