package store

import (
	"context"
	"fmt"

	"github.com/roach88/pumpsim/internal/record"
	"github.com/roach88/pumpsim/internal/session"
)

// WriteSession stores a reconciled session and its records in one
// transaction. Records are keyed by their content-addressed id, so writing
// the same result twice inserts nothing the second time.
//
// Returns the number of record rows actually inserted. Only complete
// results are accepted.
func (s *Store) WriteSession(ctx context.Context, res *session.Result) (int, error) {
	if res == nil || res.SessionID == "" {
		return 0, fmt.Errorf("write session: missing session id")
	}
	if !res.Complete {
		return 0, fmt.Errorf("write session %s: result is incomplete", res.SessionID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, name, device_id, created_seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(created_seq), 0) + 1 FROM sessions))
		ON CONFLICT(id) DO NOTHING
	`, res.SessionID, res.Name, res.DeviceID)
	if err != nil {
		return 0, fmt.Errorf("write session: insert session: %w", err)
	}

	inserted := 0
	for seq, r := range res.Records {
		id, err := record.ID(r)
		if err != nil {
			return 0, fmt.Errorf("write session: records[%d]: %w", seq, err)
		}
		body, err := record.MarshalCanonical(r)
		if err != nil {
			return 0, fmt.Errorf("write session: records[%d]: %w", seq, err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, session_id, seq, kind, time, body)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			id,
			res.SessionID,
			seq,
			string(r.Kind()),
			record.FormatTime(r.Meta().Time),
			string(body),
		)
		if err != nil {
			return 0, fmt.Errorf("write session: records[%d]: %w", seq, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("write session: rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write session: commit: %w", err)
	}

	return inserted, nil
}
