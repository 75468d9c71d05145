package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/pumpsim/internal/record"
)

// SessionInfo is a stored session row.
type SessionInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceID   string `json:"device_id"`
	CreatedSeq int64  `json:"created_seq"`
}

// StoredRecord is a stored record row. Body is the record's canonical JSON.
type StoredRecord struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Seq       int64           `json:"seq"`
	Kind      record.Kind     `json:"kind"`
	Time      string          `json:"time"`
	Body      json.RawMessage `json:"body"`
}

// ReadSession retrieves a single session by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (SessionInfo, error) {
	var info SessionInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, device_id, created_seq
		FROM sessions
		WHERE id = ?
	`, id).Scan(&info.ID, &info.Name, &info.DeviceID, &info.CreatedSeq)
	if err != nil {
		return SessionInfo{}, err
	}
	return info, nil
}

// ListSessions returns all sessions in write order.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, device_id, created_seq
		FROM sessions
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.DeviceID, &info.CreatedSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// ReadRecords returns the records of a session ordered by seq ASC, id ASC.
// When kinds is non-empty only those kinds are returned.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadRecords(ctx context.Context, sessionID string, kinds ...record.Kind) ([]StoredRecord, error) {
	query := `
		SELECT id, session_id, seq, kind, time, body
		FROM records
		WHERE session_id = ?`
	args := []any{sessionID}
	if len(kinds) > 0 {
		query += " AND kind IN (?" + strings.Repeat(", ?", len(kinds)-1) + ")"
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	query += "\n\t\tORDER BY seq ASC, id COLLATE BINARY ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []StoredRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

func scanRecord(rows *sql.Rows) (StoredRecord, error) {
	var (
		rec  StoredRecord
		kind string
		body string
	)
	if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Seq, &kind, &rec.Time, &body); err != nil {
		return StoredRecord{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Kind = record.Kind(kind)
	rec.Body = json.RawMessage(body)
	return rec, nil
}
