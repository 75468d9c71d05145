package record

import (
	"maps"
	"slices"
	"time"
)

// BasalSegment is one entry of a basal schedule; Start is the offset from
// local midnight.
type BasalSegment struct {
	Start time.Duration
	Rate  float64
}

// AmountSegment is one entry of a carb ratio or sensitivity schedule.
type AmountSegment struct {
	Start  time.Duration
	Amount float64
}

// TargetSegment is one entry of a glucose target schedule.
type TargetSegment struct {
	Start  time.Duration
	Target float64
	Low    float64
	High   float64
}

// Units holds the units settings were expressed in.
type Units struct {
	BG   string
	Carb string
}

// PumpSettings is a snapshot of the pump's therapy settings.
type PumpSettings struct {
	Common

	ActiveSchedule       string
	Units                Units
	BasalSchedules       map[string][]BasalSegment
	CarbRatios           map[string][]AmountSegment
	InsulinSensitivities map[string][]AmountSegment
	BGTargets            map[string][]TargetSegment
}

func (PumpSettings) Kind() Kind { return KindPumpSettings }
func (p PumpSettings) Meta() Common { return p.Common }
func (PumpSettings) record() {}

// PumpSettingsBuilder accumulates the fields of a settings snapshot.
type PumpSettingsBuilder struct {
	annotator
	rec PumpSettings
}

// NewPumpSettings starts a settings snapshot. The active schedule, BG units
// and at least one basal schedule are required.
func NewPumpSettings(c Common) *PumpSettingsBuilder {
	return &PumpSettingsBuilder{rec: PumpSettings{Common: c.clone()}}
}

func (b *PumpSettingsBuilder) WithActiveSchedule(name string) *PumpSettingsBuilder {
	b.rec.ActiveSchedule = name
	return b
}

func (b *PumpSettingsBuilder) WithUnits(u Units) *PumpSettingsBuilder {
	b.rec.Units = u
	return b
}

func (b *PumpSettingsBuilder) WithBasalSchedule(name string, segs []BasalSegment) *PumpSettingsBuilder {
	b.rec.BasalSchedules = putSchedule(b.rec.BasalSchedules, name, segs)
	return b
}

func (b *PumpSettingsBuilder) WithCarbRatio(name string, segs []AmountSegment) *PumpSettingsBuilder {
	b.rec.CarbRatios = putSchedule(b.rec.CarbRatios, name, segs)
	return b
}

func (b *PumpSettingsBuilder) WithInsulinSensitivity(name string, segs []AmountSegment) *PumpSettingsBuilder {
	b.rec.InsulinSensitivities = putSchedule(b.rec.InsulinSensitivities, name, segs)
	return b
}

func (b *PumpSettingsBuilder) WithBGTarget(name string, segs []TargetSegment) *PumpSettingsBuilder {
	b.rec.BGTargets = putSchedule(b.rec.BGTargets, name, segs)
	return b
}

func (b *PumpSettingsBuilder) Annotate(code string) *PumpSettingsBuilder {
	b.annotate(code)
	return b
}

// Done validates the builder and returns the finalized record.
func (b *PumpSettingsBuilder) Done() (PumpSettings, error) {
	if err := b.rec.Common.validate(KindPumpSettings); err != nil {
		return PumpSettings{}, err
	}
	if b.rec.ActiveSchedule == "" {
		return PumpSettings{}, missing(KindPumpSettings, "activeSchedule")
	}
	if b.rec.Units.BG == "" {
		return PumpSettings{}, missing(KindPumpSettings, "units")
	}
	if len(b.rec.BasalSchedules) == 0 {
		return PumpSettings{}, missing(KindPumpSettings, "basalSchedules")
	}

	rec := b.rec
	rec.Common = b.apply(rec.Common.clone())
	rec.BasalSchedules = cloneSchedules(rec.BasalSchedules)
	rec.CarbRatios = cloneSchedules(rec.CarbRatios)
	rec.InsulinSensitivities = cloneSchedules(rec.InsulinSensitivities)
	rec.BGTargets = cloneSchedules(rec.BGTargets)
	return rec, nil
}

// MustDone is like Done but panics on error.
func (b *PumpSettingsBuilder) MustDone() PumpSettings {
	rec, err := b.Done()
	if err != nil {
		panic(err)
	}
	return rec
}

func putSchedule[S any](m map[string][]S, name string, segs []S) map[string][]S {
	if m == nil {
		m = make(map[string][]S)
	}
	m[name] = slices.Clone(segs)
	return m
}

func cloneSchedules[S any](m map[string][]S) map[string][]S {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}
