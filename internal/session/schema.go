package session

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// SchemaError reports a session document that does not satisfy the
// session schema.
type SchemaError struct {
	// Details is the CUE error rendering, one problem per line.
	Details string
}

func (e *SchemaError) Error() string {
	return "session schema: " + e.Details
}

// checkSchema unifies a decoded YAML document with #Session and requires
// the result to be concrete.
func checkSchema(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling session schema: %w", err)
	}

	data := ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return &SchemaError{Details: cueerrors.Details(err, nil)}
	}

	v := schema.LookupPath(cue.ParsePath("#Session")).Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Details: cueerrors.Details(err, nil)}
	}
	return nil
}
