package simulator

import (
	"time"

	"github.com/roach88/pumpsim/internal/record"
)

// Kinds of control inputs, used in missing-field errors.
const (
	kindTempBasal record.Kind = "tempBasal"
	kindNewDay    record.Kind = "newDay"
)

// segment is the pending basal: a builder whose duration is not yet known.
type segment struct {
	b *record.BasalBuilder

	// bracket is set while the segment is covered by a temp basal.
	bracket *bracket

	// fromControl marks a temp segment fabricated from a timed start
	// control rather than reported by the pump.
	fromControl bool
}

// NewDayMarker is the pump's synthetic midnight boundary.
type NewDayMarker struct {
	Time       time.Time
	DeviceTime string
}

// Basal consumes a basal transition. The previous pending segment is
// resolved and emitted unless b coalesces with it or supersedes it.
func (s *Simulator) Basal(b *record.BasalBuilder) error {
	if err := s.checkOpen("basal"); err != nil {
		return err
	}
	if err := b.Check(); err != nil {
		return missingField("basal", err)
	}
	s.seenBasal = true

	p := s.pending
	if p == nil {
		s.adopt(b)
		return nil
	}
	if b.Time().Before(p.b.Time()) {
		return invalidSequence("basal", "basal at %s precedes pending basal at %s",
			record.FormatTime(b.Time()), record.FormatTime(p.b.Time()))
	}

	if p.b.DeliveryType() == record.DeliverySuspend && b.DeliveryType() == record.DeliverySuspend {
		s.logger.Debug("coalescing duplicate suspended basal",
			"pending", record.FormatTime(p.b.Time()),
			"duplicate", record.FormatTime(b.Time()),
		)
		return nil
	}

	if b.Time().Equal(p.b.Time()) {
		s.supersede(b)
		return nil
	}

	if br := p.bracket; br != nil && br.phase == PhaseOpen && s.armed == nil &&
		b.DeliveryType() != record.DeliverySuspend && b.Time().Before(br.end()) {
		return s.split(b)
	}

	s.checkRateChange(p, b)
	if err := s.resolve(b.Time()); err != nil {
		return err
	}
	s.adopt(b)
	return nil
}

// checkRateChange annotates a temp stopped early whose successor only
// re-asserts the scheduled rate the temp was overriding. The duration
// still comes from the stop's time left.
func (s *Simulator) checkRateChange(p *segment, b *record.BasalBuilder) {
	br := p.bracket
	if br == nil || !br.stoppedEarly() || br.suppressed == nil ||
		b.DeliveryType() != record.DeliveryScheduled {
		return
	}
	if rate, ok := b.Rate(); !ok || rate != br.suppressed.Rate {
		return
	}
	s.logger.Debug("scheduled basal repeats suppressed rate after temp stop",
		"time", record.FormatTime(b.Time()),
		"rate", br.suppressed.Rate,
	)
	p.b.Annotate(record.AnnotationTempWithoutRateChange)
}

// adopt makes b the pending segment, binding an armed bracket to it.
func (s *Simulator) adopt(b *record.BasalBuilder) {
	seg := &segment{b: b}
	if br := s.armed; br != nil {
		switch b.DeliveryType() {
		case record.DeliveryTemp:
			br.bind(b)
			seg.bracket = br
			s.armed = nil
		case record.DeliveryScheduled:
			rate, _ := b.Rate()
			br.suppressed = &record.Suppressed{
				DeliveryType: record.DeliveryScheduled,
				Rate:         rate,
				ScheduleName: b.ScheduleName(),
			}
		case record.DeliverySuspend:
			s.logger.Debug("suspend cancels unbound temp start",
				"time", record.FormatTime(b.Time()),
				"percent", br.percent,
			)
			s.armed = nil
		}
	}
	s.pending = seg
}

// supersede replaces the pending segment with b, reported at the same
// instant. Inside a bracket a scheduled basal only updates the suppressed
// rate and a temp basal replaces the fabricated or earlier temp segment.
func (s *Simulator) supersede(b *record.BasalBuilder) {
	p := s.pending
	s.logger.Debug("basal superseded at same time",
		"time", record.FormatTime(b.Time()),
		"pending", string(p.b.DeliveryType()),
		"incoming", string(b.DeliveryType()),
	)
	if br := p.bracket; br != nil {
		switch b.DeliveryType() {
		case record.DeliveryScheduled:
			rate, _ := b.Rate()
			sup := record.Suppressed{
				DeliveryType: record.DeliveryScheduled,
				Rate:         rate,
				ScheduleName: b.ScheduleName(),
			}
			br.suppressed = &sup
			p.b.WithSuppressed(sup)
			return
		case record.DeliveryTemp:
			br.decorate(b)
			p.b = b
			p.fromControl = false
			return
		}
	}
	s.pending = nil
	s.adopt(b)
}

// split ends the current temp segment at b's time and continues the
// bracket in a new segment.
func (s *Simulator) split(b *record.BasalBuilder) error {
	p := s.pending
	br := p.bracket
	d, _ := s.duration(p, b.Time(), false)
	if err := s.finalize(p, d); err != nil {
		return err
	}

	next := &segment{bracket: br, fromControl: p.fromControl}
	switch b.DeliveryType() {
	case record.DeliveryTemp:
		next.b = b
		next.fromControl = false
	default:
		// The underlying scheduled rate changed under the temp.
		rate, _ := b.Rate()
		br.suppressed = &record.Suppressed{
			DeliveryType: record.DeliveryScheduled,
			Rate:         rate,
			ScheduleName: b.ScheduleName(),
		}
		c := b.Meta()
		c.Annotations, c.Payload = nil, nil
		if c.DeviceID == "" {
			c.DeviceID = s.lastDeviceID()
		}
		next.b = record.NewTempBasal(c).WithSuppressed(*br.suppressed)
		s.logger.Debug("splitting temp basal at scheduled rate change",
			"time", record.FormatTime(b.Time()),
			"suppressed_rate", rate,
		)
	}
	br.decorate(next.b)
	s.pending = next
	return nil
}

// resolve emits the pending segment with its duration resolved at t.
func (s *Simulator) resolve(t time.Time) error {
	p := s.pending
	if p == nil {
		return nil
	}
	d, _ := s.duration(p, t, false)
	if err := s.finalize(p, d); err != nil {
		return err
	}
	s.pending = nil
	return nil
}

// duration returns the pending segment's duration when resolved at t, or
// at the end of the stream when final is set. The second result reports
// that the duration could not be inferred.
//
// Resolution order:
//  1. a duration reported by the pump is kept
//  2. inside a bracket, the segment is capped at the bracket's end; a
//     segment fabricated from a timed start runs until the next
//     transition unless the stop cut it short
//  3. otherwise the segment runs until t, or is unknown at the end
func (s *Simulator) duration(p *segment, t time.Time, final bool) (time.Duration, bool) {
	if d, ok := p.b.Duration(); ok {
		return d, false
	}
	start := p.b.Time()
	if br := p.bracket; br != nil && br.phase != PhaseArmed {
		capped := br.end().Sub(start)
		if final {
			return max(capped, 0), false
		}
		elapsed := t.Sub(start)
		if p.fromControl && !br.stoppedEarly() {
			return elapsed, false
		}
		return max(min(elapsed, capped), 0), false
	}
	if final {
		return 0, true
	}
	return t.Sub(start), false
}

// finalize completes p with duration d, links the last emitted basal and
// emits the record.
func (s *Simulator) finalize(p *segment, d time.Duration) error {
	p.b.WithDuration(d)
	if s.last != nil {
		p.b.WithPrevious(*s.last)
	}
	if p.fromControl {
		s.logger.Debug("temp basal without rate change",
			"time", record.FormatTime(p.b.Time()),
			"duration_ms", record.Millis(d),
		)
		p.b.Annotate(record.AnnotationTempWithoutRateChange)
	}
	rec, err := p.b.Done()
	if err != nil {
		return missingField("basal", err)
	}
	s.emit(rec)
	last := rec.Strip()
	s.last = &last
	return nil
}

// NewDay splits the pending segment at midnight. The segment is emitted
// up to the marker and a continuation is fabricated from it. A stopped
// temp that already ended is emitted up to its end instead. While
// suspended, or before any segment is pending, the marker is discarded.
func (s *Simulator) NewDay(m NewDayMarker) error {
	if err := s.checkOpen("newDay"); err != nil {
		return err
	}
	if !s.seenBasal {
		return invalidSequence("newDay", "new day before any basal")
	}
	if m.Time.IsZero() {
		return missingField("newDay", &record.MissingFieldError{Kind: kindNewDay, Field: "time"})
	}
	if m.DeviceTime == "" {
		return missingField("newDay", &record.MissingFieldError{Kind: kindNewDay, Field: "deviceTime"})
	}

	p := s.pending
	if p == nil || p.b.DeliveryType() == record.DeliverySuspend {
		s.logger.Debug("discarding new day marker",
			"time", record.FormatTime(m.Time),
			"suspended", p != nil,
		)
		return nil
	}
	if m.Time.Before(p.b.Time()) {
		return invalidSequence("newDay", "marker at %s precedes pending basal at %s",
			record.FormatTime(m.Time), record.FormatTime(p.b.Time()))
	}
	if m.Time.Equal(p.b.Time()) {
		return nil
	}

	if br := p.bracket; br != nil && br.phase == PhaseStopped &&
		!(p.fromControl && !br.stoppedEarly()) && !br.end().After(m.Time) {
		return s.newDayAfterTemp(p, m)
	}

	consumed := m.Time.Sub(p.b.Time())
	preset, hasPreset := p.b.Duration()
	if err := s.finalize(p, consumed); err != nil {
		return err
	}
	prev := *s.last

	c := newDayCommon(m, prev)
	var b *record.BasalBuilder
	switch prev.DeliveryType {
	case record.DeliveryTemp:
		b = record.NewTempBasal(c)
		if prev.Percent != nil {
			b.WithPercent(*prev.Percent)
		}
		if prev.Suppressed != nil {
			b.WithSuppressed(*prev.Suppressed)
		}
	default:
		b = record.NewScheduledBasal(c).WithScheduleName(prev.ScheduleName)
	}
	if prev.Rate != nil {
		b.WithRate(*prev.Rate)
	}
	for k, v := range prev.Payload {
		b.WithPayload(k, v)
	}
	if hasPreset && preset > consumed {
		b.WithDuration(preset - consumed)
	}
	b.Annotate(record.AnnotationFabricatedFromNewDay)

	s.pending = &segment{b: b, bracket: p.bracket, fromControl: p.fromControl}
	return nil
}

// newDayAfterTemp handles a marker that arrives after a stopped temp has
// already ended. The temp is emitted up to its end and the day continues
// on the scheduled rate it suppressed, if that is known.
func (s *Simulator) newDayAfterTemp(p *segment, m NewDayMarker) error {
	br := p.bracket
	d := m.Time.Sub(p.b.Time())
	if preset, ok := p.b.Duration(); ok {
		d = min(d, preset)
	}
	d = max(min(d, br.end().Sub(p.b.Time())), 0)
	if err := s.finalize(p, d); err != nil {
		return err
	}
	s.pending = nil

	sup := br.suppressed
	s.logger.Debug("new day after temp basal ended",
		"time", record.FormatTime(m.Time),
		"temp_end", record.FormatTime(br.end()),
		"scheduled", sup != nil,
	)
	if sup == nil {
		return nil
	}
	b := record.NewScheduledBasal(newDayCommon(m, *s.last)).
		WithRate(sup.Rate).
		WithScheduleName(sup.ScheduleName).
		Annotate(record.AnnotationFabricatedFromNewDay)
	s.pending = &segment{b: b}
	return nil
}

func newDayCommon(m NewDayMarker, prev record.Basal) record.Common {
	return record.Common{
		Time:             m.Time,
		DeviceTime:       m.DeviceTime,
		TimezoneOffset:   prev.TimezoneOffset,
		ConversionOffset: prev.ConversionOffset,
		DeviceID:         prev.DeviceID,
	}
}

// FinalBasal resolves the pending segment with no successor and clears
// all state. It must be called exactly once, after the last input.
func (s *Simulator) FinalBasal() error {
	if s.flushed {
		return invalidSequence("finalBasal", "called more than once")
	}
	if p := s.pending; p != nil {
		d, unknown := s.duration(p, time.Time{}, true)
		if unknown {
			s.logger.Debug("basal duration unknown at end of stream",
				"time", record.FormatTime(p.b.Time()),
				"delivery_type", string(p.b.DeliveryType()),
			)
			p.b.Annotate(record.AnnotationUnknownDuration)
		}
		if err := s.finalize(p, d); err != nil {
			return err
		}
	}
	s.pending = nil
	s.armed = nil
	s.last = nil
	s.suspend = suspendNone
	s.suspendCtx = record.DeviceEvent{}
	s.flushed = true
	return nil
}
