package testutil

// FixedRunID returns the same run ID every time.
//
// Unlike engine.FixedGenerator which returns IDs in sequence and panics
// when exhausted, this generator can serve any number of runs. Use it when
// comparing reports of repeated runs byte for byte.
//
// Implements engine.RunIDGenerator.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id. If id is empty, Generate
// returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedRunID) Generate() string {
	return g.id
}
