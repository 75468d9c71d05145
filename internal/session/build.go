package session

import (
	"fmt"
	"time"

	"github.com/roach88/pumpsim/internal/record"
	"github.com/roach88/pumpsim/internal/simulator"
)

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// common derives the common record fields of e. An event without a time
// yields a zero Common.Time, which record builders report as missing.
func (s *Session) common(e Event) (record.Common, error) {
	c := record.Common{
		DeviceTime:       e.DeviceTime,
		TimezoneOffset:   s.TimezoneOffset,
		ConversionOffset: s.ConversionOffset,
		DeviceID:         s.DeviceID,
	}
	if e.DeviceID != "" {
		c.DeviceID = e.DeviceID
	}
	if e.Time == "" {
		return c, nil
	}
	t, err := parseTime(e.Time)
	if err != nil {
		return record.Common{}, err
	}
	c.Time = t
	if c.DeviceTime == "" {
		offset := time.Duration(s.TimezoneOffset) * time.Minute
		c.DeviceTime = t.Add(offset).Format(record.DeviceTimeLayout)
	}
	return c, nil
}

// apply feeds one event to sim.
func (s *Session) apply(sim *simulator.Simulator, e Event) error {
	c, err := s.common(e)
	if err != nil {
		return err
	}

	switch e.Kind {
	case KindSMBG:
		b := record.NewSMBG(c).WithUnits(orDefault(e.Units, "mg/dL"))
		if e.Value != nil {
			b.WithValue(*e.Value)
		}
		rec, err := b.Done()
		if err != nil {
			return err
		}
		return sim.SMBG(rec)

	case KindBolus:
		rec, err := buildBolus(c, Bolus{
			Subtype:          e.Subtype,
			Normal:           e.Normal,
			ExpectedNormal:   e.ExpectedNormal,
			Extended:         e.Extended,
			ExpectedExtended: e.ExpectedExtended,
			Duration:         e.Duration,
			ExpectedDuration: e.ExpectedDuration,
		})
		if err != nil {
			return err
		}
		return sim.Bolus(rec)

	case KindWizard:
		rec, err := buildWizard(c, e)
		if err != nil {
			return err
		}
		return sim.Wizard(rec)

	case KindAlarm:
		rec, err := record.NewAlarm(c).WithAlarmType(e.AlarmType).Done()
		if err != nil {
			return err
		}
		return sim.Alarm(rec)

	case KindCartridgeChange:
		rec, err := record.NewReservoirChange(c).Done()
		if err != nil {
			return err
		}
		return sim.CartridgeChange(rec)

	case KindTimeChange:
		b := record.NewTimeChange(c)
		if e.Change != nil {
			b.WithChange(record.TimeChange{From: e.Change.From, To: e.Change.To, Agent: e.Change.Agent})
		}
		rec, err := b.Done()
		if err != nil {
			return err
		}
		return sim.TimeChange(rec)

	case KindPumpSettings:
		rec, err := buildSettings(c, e)
		if err != nil {
			return err
		}
		return sim.PumpSettings(rec)

	case KindSuspend:
		b := record.NewSuspend(c)
		if e.Reason != nil {
			b.WithReason(e.Reason)
		}
		rec, err := b.Done()
		if err != nil {
			return err
		}
		return sim.Suspend(rec)

	case KindResume:
		b := record.NewResume(c)
		if e.Reason != nil {
			b.WithReason(e.Reason)
		}
		return sim.Resume(b)

	case KindBasal:
		b, err := buildBasal(c, e)
		if err != nil {
			return err
		}
		return sim.Basal(b)

	case KindTempBasalStart:
		if e.Percent == nil {
			return &record.MissingFieldError{Kind: "tempBasal", Field: "percent"}
		}
		ctrl := simulator.TempBasalControl{
			Kind:    simulator.ControlStart,
			Percent: *e.Percent,
			Index:   e.Index,
		}
		if e.Duration != nil {
			ctrl.Duration = millis(*e.Duration)
		}
		if !c.Time.IsZero() {
			ctrl.Common = c
		}
		return sim.TempBasal(ctrl)

	case KindTempBasalStop:
		ctrl := simulator.TempBasalControl{Kind: simulator.ControlStop}
		if e.TimeLeft != nil {
			ctrl.TimeLeft = millis(*e.TimeLeft)
		}
		return sim.TempBasal(ctrl)

	case KindNewDay:
		return sim.NewDay(simulator.NewDayMarker{Time: c.Time, DeviceTime: c.DeviceTime})

	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func buildBolus(c record.Common, in Bolus) (record.Bolus, error) {
	var b *record.BolusBuilder
	switch record.BolusSubType(in.Subtype) {
	case record.BolusNormal:
		b = record.NewNormalBolus(c)
	case record.BolusSquare:
		b = record.NewSquareBolus(c)
	case record.BolusDualSquare:
		b = record.NewDualSquareBolus(c)
	default:
		return record.Bolus{}, fmt.Errorf("unknown bolus subtype %q", in.Subtype)
	}
	if in.Normal != nil {
		b.WithNormal(*in.Normal)
	}
	if in.ExpectedNormal != nil {
		b.WithExpectedNormal(*in.ExpectedNormal)
	}
	if in.Extended != nil {
		b.WithExtended(*in.Extended)
	}
	if in.ExpectedExtended != nil {
		b.WithExpectedExtended(*in.ExpectedExtended)
	}
	if in.Duration != nil {
		b.WithDuration(millis(*in.Duration))
	}
	if in.ExpectedDuration != nil {
		b.WithExpectedDuration(millis(*in.ExpectedDuration))
	}
	return b.Done()
}

func buildWizard(c record.Common, e Event) (record.Wizard, error) {
	b := record.NewWizard(c).WithUnits(orDefault(e.Units, "mg/dL"))
	if r := e.Recommended; r != nil {
		b.WithRecommended(record.Recommended{Carb: r.Carb, Correction: r.Correction, Net: r.Net})
	}
	optional := []struct {
		v   *float64
		set func(float64) *record.WizardBuilder
	}{
		{e.BGInput, b.WithBGInput},
		{e.CarbInput, b.WithCarbInput},
		{e.InsulinOnBoard, b.WithInsulinOnBoard},
		{e.InsulinCarbRatio, b.WithInsulinCarbRatio},
		{e.InsulinSensitivity, b.WithInsulinSensitivity},
	}
	for _, o := range optional {
		if o.v != nil {
			o.set(*o.v)
		}
	}
	if t := e.BGTarget; t != nil {
		b.WithBGTarget(record.BGTarget{Target: t.Target, Low: t.Low, High: t.High})
	}
	if e.Bolus != nil {
		bolus, err := buildBolus(c, *e.Bolus)
		if err != nil {
			return record.Wizard{}, fmt.Errorf("nested bolus: %w", err)
		}
		b.WithBolus(bolus)
	}
	return b.Done()
}

func buildSettings(c record.Common, e Event) (record.PumpSettings, error) {
	b := record.NewPumpSettings(c).
		WithActiveSchedule(e.ActiveSchedule).
		WithUnits(record.Units{BG: orDefault(e.BGUnits, "mg/dL"), Carb: e.CarbUnits})
	for name, segs := range e.BasalSchedules {
		out := make([]record.BasalSegment, len(segs))
		for i, seg := range segs {
			out[i] = record.BasalSegment{Start: millis(seg.Start), Rate: seg.Rate}
		}
		b.WithBasalSchedule(name, out)
	}
	for name, segs := range e.CarbRatios {
		b.WithCarbRatio(name, amountSegments(segs))
	}
	for name, segs := range e.InsulinSensitivities {
		b.WithInsulinSensitivity(name, amountSegments(segs))
	}
	for name, segs := range e.BGTargets {
		out := make([]record.TargetSegment, len(segs))
		for i, seg := range segs {
			out[i] = record.TargetSegment{Start: millis(seg.Start), Target: seg.Target, Low: seg.Low, High: seg.High}
		}
		b.WithBGTarget(name, out)
	}
	return b.Done()
}

func amountSegments(segs []AmountSegment) []record.AmountSegment {
	out := make([]record.AmountSegment, len(segs))
	for i, seg := range segs {
		out[i] = record.AmountSegment{Start: millis(seg.Start), Amount: seg.Amount}
	}
	return out
}

func buildBasal(c record.Common, e Event) (*record.BasalBuilder, error) {
	var b *record.BasalBuilder
	switch record.DeliveryType(e.DeliveryType) {
	case record.DeliveryScheduled:
		b = record.NewScheduledBasal(c)
	case record.DeliveryTemp:
		b = record.NewTempBasal(c)
	case record.DeliverySuspend:
		b = record.NewSuspendBasal(c)
	default:
		return nil, fmt.Errorf("unknown delivery type %q", e.DeliveryType)
	}
	if e.Rate != nil {
		b.WithRate(*e.Rate)
	}
	if e.ScheduleName != "" {
		b.WithScheduleName(e.ScheduleName)
	}
	if e.Percent != nil {
		b.WithPercent(*e.Percent)
	}
	if e.Duration != nil {
		b.WithDuration(millis(*e.Duration))
	}
	return b, nil
}
