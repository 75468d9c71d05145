package simulator

import (
	"log/slog"
	"slices"
	"sort"

	"github.com/roach88/pumpsim/internal/record"
)

// Simulator reconciles one device session's record stream into a
// duration-complete timeline.
type Simulator struct {
	logger *slog.Logger

	// events is kept ordered by time. Records are inserted, never mutated.
	events []record.Record

	// Basal reconciliation state.
	pending *segment
	last    *record.Basal
	armed   *bracket

	// seenBasal is set by the first basal input, however it was resolved.
	seenBasal bool

	suspend    suspendState
	suspendCtx record.DeviceEvent

	flushed bool
}

// suspendState tracks whether a resume has a suspend to link to.
type suspendState int

const (
	// suspendNone: no suspend since the last resume.
	suspendNone suspendState = iota

	// suspendPending: the first suspend of the current run is held in
	// suspendCtx. Later suspends in the same run leave it untouched.
	suspendPending
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger for data-quality decisions. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Simulator with empty state.
func New(opts ...Option) *Simulator {
	s := &Simulator{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns a copy of the records emitted so far, in non-decreasing
// time order. Records of equal time keep their emission order. The
// sequence is complete only after FinalBasal.
func (s *Simulator) Events() []record.Record {
	return slices.Clone(s.events)
}

// Flushed reports whether FinalBasal has been called.
func (s *Simulator) Flushed() bool {
	return s.flushed
}

// emit inserts r after every record with a time not after r's.
//
// A basal segment is emitted only once its successor is known, so
// pass-through records that arrived while it was pending precede it in
// arrival order. Inserting by time keeps the output monotone without
// touching any record already emitted.
func (s *Simulator) emit(r record.Record) {
	t := r.Meta().Time
	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Meta().Time.After(t)
	})
	s.events = slices.Insert(s.events, i, r)
}

func (s *Simulator) checkOpen(op string) error {
	if s.flushed {
		return invalidSequence(op, "called after finalBasal")
	}
	return nil
}

// passThrough validates r and emits it unchanged.
func (s *Simulator) passThrough(op string, r record.Record) error {
	if err := s.checkOpen(op); err != nil {
		return err
	}
	if err := record.Validate(r); err != nil {
		return missingField(op, err)
	}
	s.emit(r)
	return nil
}

// SMBG emits a fingerstick reading unchanged.
func (s *Simulator) SMBG(r record.SMBG) error {
	return s.passThrough("smbg", r)
}

// Alarm emits an alarm event unchanged.
func (s *Simulator) Alarm(r record.DeviceEvent) error {
	if r.SubType != record.DeviceEventAlarm {
		return invalidSequence("alarm", "device event subType %q is not an alarm", r.SubType)
	}
	return s.passThrough("alarm", r)
}

// CartridgeChange emits a reservoir change event unchanged.
func (s *Simulator) CartridgeChange(r record.DeviceEvent) error {
	if r.SubType != record.DeviceEventReservoirChange {
		return invalidSequence("cartridgeChange", "device event subType %q is not a reservoir change", r.SubType)
	}
	return s.passThrough("cartridgeChange", r)
}

// TimeChange emits a clock change event unchanged.
func (s *Simulator) TimeChange(r record.DeviceEvent) error {
	if r.SubType != record.DeviceEventTimeChange {
		return invalidSequence("timeChange", "device event subType %q is not a time change", r.SubType)
	}
	return s.passThrough("timeChange", r)
}

// PumpSettings emits a settings snapshot unchanged.
func (s *Simulator) PumpSettings(r record.PumpSettings) error {
	return s.passThrough("pumpSettings", r)
}

// Bolus emits r unless it is a zero-volume normal bolus with no expected
// amount, which is dropped.
func (s *Simulator) Bolus(r record.Bolus) error {
	if err := s.checkOpen("bolus"); err != nil {
		return err
	}
	if err := record.Validate(r); err != nil {
		return missingField("bolus", err)
	}
	if r.IsZeroVolume() {
		s.logger.Debug("dropping zero-volume bolus",
			"time", record.FormatTime(r.Time),
			"device_id", r.DeviceID,
		)
		return nil
	}
	s.emit(r)
	return nil
}

// Wizard emits r. A zero-volume nested bolus is removed; the wizard record
// itself is always kept.
func (s *Simulator) Wizard(r record.Wizard) error {
	if err := s.checkOpen("wizard"); err != nil {
		return err
	}
	if err := record.Validate(r); err != nil {
		return missingField("wizard", err)
	}
	if r.Bolus != nil && r.Bolus.IsZeroVolume() {
		s.logger.Debug("dropping zero-volume bolus from wizard",
			"time", record.FormatTime(r.Time),
			"device_id", r.DeviceID,
		)
		r = r.WithoutBolus()
	}
	s.emit(r)
	return nil
}

// Suspend emits a suspended status event and holds it as the suspend
// context for the next resume. Only the first suspend of a run is held.
func (s *Simulator) Suspend(r record.DeviceEvent) error {
	if err := s.checkOpen("suspend"); err != nil {
		return err
	}
	if !r.IsSuspend() {
		return invalidSequence("suspend", "device event is not a suspended status")
	}
	if err := record.Validate(r); err != nil {
		return missingField("suspend", err)
	}
	s.emit(r)

	switch s.suspend {
	case suspendNone:
		s.suspendCtx = r.Strip()
		s.suspend = suspendPending
	case suspendPending:
		s.logger.Debug("keeping first suspend of run",
			"first", record.FormatTime(s.suspendCtx.Time),
			"repeat", record.FormatTime(r.Time),
		)
	}
	return nil
}

// Resume finalizes b, linking it to the held suspend if there is one, and
// emits it. The suspend context is cleared.
func (s *Simulator) Resume(b *record.DeviceEventBuilder) error {
	if err := s.checkOpen("resume"); err != nil {
		return err
	}
	if !b.IsResume() {
		return invalidSequence("resume", "device event is not a resumed status")
	}
	if s.suspend == suspendPending {
		b.WithPrevious(s.suspendCtx)
	}
	rec, err := b.Done()
	if err != nil {
		return missingField("resume", err)
	}
	s.emit(rec)

	s.suspend = suspendNone
	s.suspendCtx = record.DeviceEvent{}
	return nil
}
