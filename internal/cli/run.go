package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pumpsim/internal/record"
	"github.com/roach88/pumpsim/internal/session"
	"github.com/roach88/pumpsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	SessionID string

	// IDGenerator overrides the session id generator (for testing).
	// Ignored when SessionID is set. If nil, defaults to UUIDv7Generator.
	IDGenerator session.IDGenerator
}

// RunOutput is the JSON payload of a run.
type RunOutput struct {
	SessionID string            `json:"session_id"`
	Name      string            `json:"name"`
	DeviceID  string            `json:"device_id,omitempty"`
	Complete  bool              `json:"complete"`
	Stored    *int              `json:"stored,omitempty"`
	Records   []json.RawMessage `json:"records"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <session.yaml>",
		Short: "Reconcile a session and print its records",
		Long: `Replay a session's events through the reconciliation simulator.

Prints one line per emitted record (or the canonical JSON records with
--format json). With --db the records are also written to a SQLite
database, creating it if it doesn't exist.

Example:
  pumpsim run ./sessions/day1.yaml
  pumpsim run --db ./pumpsim.db --session-id day1 ./sessions/day1.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to store records in")
	cmd.Flags().StringVar(&opts.SessionID, "session-id", "", "session id to use instead of a generated UUIDv7")

	return cmd
}

func runSession(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	s, err := loadSession(formatter, path)
	if err != nil {
		return err
	}

	ids := opts.IDGenerator
	if opts.SessionID != "" {
		ids = session.NewFixedGenerator(opts.SessionID)
	}
	if ids == nil {
		ids = session.UUIDv7Generator{}
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := session.Run(ctx, s,
		session.WithIDGenerator(ids),
		session.WithLogger(logger),
	)
	if err != nil {
		formatter.VerboseLog("%d record(s) emitted before failure", len(res.Records))
		return formatter.Fail(ExitFailure, ErrCodeReconcile, "reconciliation failed", err)
	}

	var stored *int
	if opts.Database != "" {
		n, err := storeResult(ctx, opts.Database, res)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to store records", err)
		}
		logger.Info("records stored", "db", opts.Database, "session_id", res.SessionID, "inserted", n)
		stored = &n
	}

	if opts.Format == "json" {
		out := RunOutput{
			SessionID: res.SessionID,
			Name:      res.Name,
			DeviceID:  res.DeviceID,
			Complete:  res.Complete,
			Stored:    stored,
			Records:   make([]json.RawMessage, 0, len(res.Records)),
		}
		for i, r := range res.Records {
			body, err := record.MarshalCanonical(r)
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("marshal records[%d]", i), err)
			}
			out.Records = append(out.Records, body)
		}
		return formatter.Success(out)
	}

	w := cmd.OutOrStdout()
	if _, err := w.Write(session.Transcript(res)); err != nil {
		return err
	}
	if stored != nil {
		fmt.Fprintf(w, "Stored %d new record(s) in %s as session %s\n", *stored, opts.Database, res.SessionID)
	}
	return nil
}

func storeResult(ctx context.Context, path string, res *session.Result) (int, error) {
	st, err := store.Open(path)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	return st.WriteSession(ctx, res)
}
