package testutil

// DefaultRunID is the run id NewFixedRunIDGenerator pins when given none.
// It is shaped like the UUIDv7 ids real runs record.
const DefaultRunID = "00000000-0000-7000-8000-000000000000"

// FixedRunIDGenerator pins the id written to ndconvert_runs and reported in
// run summaries, so tests can assert on it and golden dumps stay stable.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator returns a generator for id, or DefaultRunID.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
