package cli

import (
	"errors"
	"io/fs"

	"github.com/roach88/pumpsim/internal/session"
)

// loadSession loads a session file and reports failures through f.
// A missing file is a command error; a malformed or schema-violating
// session is a validation failure.
func loadSession(f *OutputFormatter, path string) (*session.Session, error) {
	s, err := session.LoadSession(path)
	if err == nil {
		f.VerboseLog("Loaded session %q: %d event(s) from %s", s.Name, len(s.Events), path)
		return s, nil
	}

	var schemaErr *session.SchemaError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "session file not found: "+path, err)
	case errors.As(err, &schemaErr):
		return nil, f.Fail(ExitFailure, ErrCodeSchema, "session violates schema", err)
	default:
		return nil, f.Fail(ExitFailure, ErrCodeParse, "invalid session", err)
	}
}
