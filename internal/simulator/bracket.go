package simulator

import (
	"time"

	"github.com/roach88/pumpsim/internal/record"
)

// Phase is the state of a temp-basal bracket.
//
// Transitions:
//
//	(none)  --start-->            PhaseArmed
//	PhaseArmed  --temp basal-->   PhaseOpen     segment bound, start = segment time
//	PhaseArmed  --timed start-->  PhaseOpen     segment fabricated at the control time
//	PhaseArmed  --stop-->         (none)        temp cancelled before it ran
//	PhaseArmed  --suspend basal-> (none)
//	PhaseOpen   --scheduled basal before end--> PhaseOpen  split
//	PhaseOpen   --stop-->         PhaseStopped  time left recorded
//	PhaseOpen, PhaseStopped  --segment resolved by a non-temp basal--> (none)
//	PhaseStopped  --new day after the temp ended--> (none)
//
// Otherwise a new-day marker carries the bracket into the fabricated
// segment unchanged.
type Phase int

const (
	// PhaseArmed: a start control was seen but no temp segment yet.
	PhaseArmed Phase = iota

	// PhaseOpen: temp segments are running.
	PhaseOpen

	// PhaseStopped: the stop control was seen; the last segment is still
	// pending.
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseArmed:
		return "armed"
	case PhaseOpen:
		return "open"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// bracket is a temp-basal start/stop pair and the segments it covers.
type bracket struct {
	phase Phase

	percent   float64
	requested time.Duration
	index     *int

	// start is the time of the first segment; set on binding.
	start time.Time

	// timeLeft is the stop control's remaining time, clamped to
	// [0, requested].
	timeLeft time.Duration

	// suppressed is the scheduled rate the temp overrides, if known.
	suppressed *record.Suppressed
}

// end is the instant the temp stopped or will stop.
func (br *bracket) end() time.Time {
	return br.start.Add(br.requested - br.timeLeft)
}

// stoppedEarly reports whether the stop control cut the temp short.
func (br *bracket) stoppedEarly() bool {
	return br.phase == PhaseStopped && br.timeLeft > 0
}

// bind attaches the armed bracket to the first temp segment.
func (br *bracket) bind(b *record.BasalBuilder) {
	br.phase = PhaseOpen
	br.start = b.Time()
	br.decorate(b)
}

// decorate fills the bracket's fields into a temp segment. Fields the
// device already reported are kept.
func (br *bracket) decorate(b *record.BasalBuilder) {
	if _, ok := b.Percent(); !ok {
		b.WithPercent(br.percent)
	}
	b.WithPayload(record.PayloadDuration, record.Millis(br.requested))
	if br.index != nil {
		b.WithPayload(record.PayloadLogIndices, *br.index)
	}
	if b.Suppressed() == nil && br.suppressed != nil {
		b.WithSuppressed(*br.suppressed)
	}
}

// ControlKind distinguishes temp-basal control inputs.
type ControlKind string

const (
	ControlStart ControlKind = "start"
	ControlStop  ControlKind = "stop"
)

// TempBasalControl is a temp-basal start or stop reported by the pump.
type TempBasalControl struct {
	Kind ControlKind

	// Percent and Duration are the start's declared override.
	Percent  float64
	Duration time.Duration

	// TimeLeft is the stop's remaining requested time. Zero means the temp
	// ran to completion.
	TimeLeft time.Duration

	// Common is optional on a start. When Time is set, the temp segment is
	// fabricated at that instant instead of waiting for a temp basal.
	Common record.Common

	// Index is the pump log index of the start, recorded in the payload.
	Index *int
}

// TempBasal applies a start or stop control.
func (s *Simulator) TempBasal(ctrl TempBasalControl) error {
	if err := s.checkOpen("tempBasal"); err != nil {
		return err
	}
	switch ctrl.Kind {
	case ControlStart:
		return s.startTemp(ctrl)
	case ControlStop:
		return s.stopTemp(ctrl)
	default:
		return invalidSequence("tempBasal", "unknown control kind %q", ctrl.Kind)
	}
}

func (s *Simulator) startTemp(ctrl TempBasalControl) error {
	if ctrl.Duration <= 0 {
		return missingField("tempBasal", &record.MissingFieldError{Kind: kindTempBasal, Field: "duration"})
	}
	timed := !ctrl.Common.Time.IsZero()
	if timed {
		if ctrl.Common.DeviceTime == "" {
			return missingField("tempBasal", &record.MissingFieldError{Kind: kindTempBasal, Field: "deviceTime"})
		}
		if s.pending != nil && ctrl.Common.Time.Before(s.pending.b.Time()) {
			return invalidSequence("tempBasal", "start at %s precedes pending basal at %s",
				record.FormatTime(ctrl.Common.Time), record.FormatTime(s.pending.b.Time()))
		}
	}

	if s.armed != nil {
		s.logger.Debug("replacing unbound temp start",
			"percent", s.armed.percent,
			"requested_ms", record.Millis(s.armed.requested),
		)
	}
	s.armed = &bracket{
		phase:      PhaseArmed,
		percent:    ctrl.Percent,
		requested:  ctrl.Duration,
		index:      ctrl.Index,
		suppressed: s.underlying(),
	}
	if !timed {
		return nil
	}

	// The pump never reports a temp rate for this start; the segment is
	// built from the control itself.
	c := ctrl.Common
	if c.DeviceID == "" {
		c.DeviceID = s.lastDeviceID()
	}
	if s.pending != nil {
		if s.pending.b.Time().Equal(c.Time) && s.pending.b.DeliveryType() == record.DeliveryScheduled {
			s.logger.Debug("temp start supersedes scheduled basal at same time",
				"time", record.FormatTime(c.Time),
			)
			s.pending = nil
		} else if err := s.resolve(c.Time); err != nil {
			return err
		}
	}
	s.adopt(record.NewTempBasal(c))
	s.pending.fromControl = true
	return nil
}

func (s *Simulator) stopTemp(ctrl TempBasalControl) error {
	if s.armed != nil {
		s.logger.Debug("temp cancelled before any segment",
			"percent", s.armed.percent,
			"requested_ms", record.Millis(s.armed.requested),
		)
		s.armed = nil
		return nil
	}
	if s.pending == nil || s.pending.bracket == nil || s.pending.bracket.phase != PhaseOpen {
		return invalidSequence("tempBasal", "stop without an open temp basal")
	}
	br := s.pending.bracket
	br.phase = PhaseStopped
	br.timeLeft = min(max(ctrl.TimeLeft, 0), br.requested)
	return nil
}

// underlying returns the scheduled rate a temp starting now would
// override.
func (s *Simulator) underlying() *record.Suppressed {
	if s.pending == nil {
		return nil
	}
	b := s.pending.b
	switch b.DeliveryType() {
	case record.DeliveryScheduled:
		rate, _ := b.Rate()
		return &record.Suppressed{
			DeliveryType: record.DeliveryScheduled,
			Rate:         rate,
			ScheduleName: b.ScheduleName(),
		}
	case record.DeliveryTemp:
		return b.Suppressed()
	default:
		return nil
	}
}

func (s *Simulator) lastDeviceID() string {
	if s.pending != nil && s.pending.b.Meta().DeviceID != "" {
		return s.pending.b.Meta().DeviceID
	}
	if s.last != nil {
		return s.last.DeviceID
	}
	return ""
}
