// Package artifact provides the analysis-target providers used by the
// engine: FileSystem walks directories on disk and Memory serves
// in-memory content.
//
// Both detect MIME types with github.com/gabriel-vasile/mimetype; rules
// use the detected type to decline binary artifacts. Neither sorts or
// de-duplicates: the engine establishes the canonical order itself.
package artifact
