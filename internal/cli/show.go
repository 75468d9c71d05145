package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pumpsim/internal/record"
	"github.com/roach88/pumpsim/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	Session  string
	Kinds    []string
}

// ShowOutput is the JSON payload of show --session.
type ShowOutput struct {
	Session store.SessionInfo    `json:"session"`
	Records []store.StoredRecord `json:"records"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print stored sessions or records",
		Long: `Read back what run --db stored.

Without --session, lists the stored sessions in write order. With
--session, prints that session's records in output order, optionally
limited to some record types.

Examples:
  pumpsim show --db ./pumpsim.db
  pumpsim show --db ./pumpsim.db --session day1
  pumpsim show --db ./pumpsim.db --session day1 --kind basal --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to print records for")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "record type filter (repeatable)")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// store.Open creates missing files; show must not.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "database not found: "+opts.Database, err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return showSessions(ctx, st, formatter)
	}
	return showRecords(ctx, st, opts, formatter)
}

func showSessions(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to list sessions", err)
	}

	if f.Format == "json" {
		return f.Success(sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(f.Writer, "No sessions stored.")
		return nil
	}
	for _, info := range sessions {
		fmt.Fprintf(f.Writer, "%s\t%s\t%s\n", info.ID, info.Name, info.DeviceID)
	}
	return nil
}

func showRecords(ctx context.Context, st *store.Store, opts *ShowOptions, f *OutputFormatter) error {
	info, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "session not found: "+opts.Session, nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read session", err)
	}

	kinds := make([]record.Kind, 0, len(opts.Kinds))
	for _, k := range opts.Kinds {
		kinds = append(kinds, record.Kind(k))
	}
	records, err := st.ReadRecords(ctx, opts.Session, kinds...)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read records", err)
	}
	f.VerboseLog("Read %d record(s) for session %s", len(records), info.ID)

	if f.Format == "json" {
		return f.Success(ShowOutput{Session: info, Records: records})
	}
	fmt.Fprintf(f.Writer, "# %s %s (%d records)\n", info.ID, info.Name, len(records))
	for _, r := range records {
		fmt.Fprintf(f.Writer, "%d\t%s\t%s\t%s\n", r.Seq, r.Time, r.Kind, r.Body)
	}
	return nil
}
