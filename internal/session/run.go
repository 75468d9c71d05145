package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/pumpsim/internal/record"
	"github.com/roach88/pumpsim/internal/simulator"
)

// Result is the reconciled output of one session.
type Result struct {
	SessionID string
	Name      string
	DeviceID  string

	// Records are in non-decreasing time order.
	Records []record.Record

	// Complete is false when the run stopped before FinalBasal.
	Complete bool
}

// EventError reports the event that failed. Err is a record or simulator
// error; use errors.As or the simulator.Is* helpers to classify it.
type EventError struct {
	Index int
	Kind  string
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("events[%d] (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

type runConfig struct {
	ids    IDGenerator
	logger *slog.Logger
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithIDGenerator sets the session id generator. Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) RunOption {
	return func(c *runConfig) {
		c.ids = g
	}
}

// WithLogger sets the logger passed to the simulator. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run replays s through a fresh Simulator and flushes it.
//
// The returned Result is never nil. If ctx is cancelled or an event fails,
// Records holds what was emitted before the stop, Complete is false and
// the error is returned alongside.
func Run(ctx context.Context, s *Session, opts ...RunOption) (*Result, error) {
	cfg := runConfig{ids: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	res := &Result{
		SessionID: cfg.ids.Generate(),
		Name:      s.Name,
		DeviceID:  s.DeviceID,
	}
	logger := cfg.logger.With("session", s.Name, "session_id", res.SessionID)
	sim := simulator.New(simulator.WithLogger(logger))

	for i, e := range s.Events {
		if err := ctx.Err(); err != nil {
			res.Records = sim.Events()
			return res, fmt.Errorf("session %s stopped at events[%d]: %w", s.Name, i, err)
		}
		if err := s.apply(sim, e); err != nil {
			res.Records = sim.Events()
			return res, &EventError{Index: i, Kind: e.Kind, Err: err}
		}
	}
	if err := sim.FinalBasal(); err != nil {
		res.Records = sim.Events()
		return res, err
	}

	res.Records = sim.Events()
	res.Complete = true
	logger.Debug("session reconciled",
		"events", len(s.Events),
		"records", len(res.Records),
	)
	return res, nil
}
