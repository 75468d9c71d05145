package session

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pumpsim/internal/record"
)

// Transcript renders a result as text: a header line followed by one
// record.Summary line per record.
func Transcript(res *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s (%d records)\n", res.Name, len(res.Records))
	for _, r := range res.Records {
		buf.WriteString(record.Summary(r))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// AssertGolden compares the transcript of res against
// testdata/golden/{res.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/session -update
func AssertGolden(t *testing.T, res *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, res.Name, Transcript(res))
}
