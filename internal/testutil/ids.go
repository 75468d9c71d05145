package testutil

// ConstantIDGenerator returns the same session id every time.
//
// Unlike session.FixedGenerator, which hands out a list of ids in order and
// panics when it runs out, this generator never runs out. Use it when a test
// runs the same session repeatedly and expects identical output.
type ConstantIDGenerator struct {
	id string
}

// NewConstantIDGenerator creates a generator for id. An empty id becomes
// "test-session-default".
func NewConstantIDGenerator(id string) *ConstantIDGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &ConstantIDGenerator{id: id}
}

// Generate returns the constant id.
func (g *ConstantIDGenerator) Generate() string {
	return g.id
}
